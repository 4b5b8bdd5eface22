// Package pipeline holds the document processing steps: preprocess,
// classify, extract. Steps are pure; the ingestion orchestrator persists
// results and publishes events between them.
package pipeline

import "context"

// PreprocessHook transforms raw bytes before extraction. The default is
// identity; OCR or image cleanup providers can be plugged in.
type PreprocessHook func(ctx context.Context, content []byte, contentType string) ([]byte, error)

// Preprocessor normalizes a stored document and derives the preprocessed
// artifact URI.
type Preprocessor struct {
	hook PreprocessHook
}

func NewPreprocessor(hook PreprocessHook) *Preprocessor {
	if hook == nil {
		hook = func(ctx context.Context, content []byte, contentType string) ([]byte, error) {
			return content, nil
		}
	}
	return &Preprocessor{hook: hook}
}

// Run applies the hook and returns the derived artifact URI. The artifact
// is addressed as a fragment of the raw object rather than a second copy.
func (p *Preprocessor) Run(ctx context.Context, storageURI string, content []byte, contentType string) (string, []byte, error) {
	processed, err := p.hook(ctx, content, contentType)
	if err != nil {
		return "", nil, err
	}
	return storageURI + "#preprocessed", processed, nil
}
