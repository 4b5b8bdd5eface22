package pipeline

import "strings"

// ClassifierModelVersion tags every classification this heuristic emits.
const ClassifierModelVersion = "clf-v1"

// Classification is the outcome of document type detection.
type Classification struct {
	DocType      string  `json:"doc_type"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
}

// Classifier assigns a document type from the file name. The heuristic is
// deliberately simple; the model version field exists so a trained model
// can replace it without schema changes.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Classify(fileName string) Classification {
	name := strings.ToLower(fileName)
	switch {
	case strings.Contains(name, "awb"):
		return Classification{DocType: "awb", Confidence: 0.94, ModelVersion: ClassifierModelVersion}
	case strings.Contains(name, "invoice"):
		return Classification{DocType: "fiar_invoice", Confidence: 0.92, ModelVersion: ClassifierModelVersion}
	default:
		return Classification{DocType: "unclassified", Confidence: 0.55, ModelVersion: ClassifierModelVersion}
	}
}
