// Package secrets resolves secret references of the form
// "secret-manager://{name}". Resolution order: environment variable,
// Google Secret Manager, then a dev-only placeholder.
package secrets

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	secretmanager "google.golang.org/api/secretmanager/v1"
)

const refPrefix = "secret-manager://"

type Resolver struct {
	project string
	svc     *secretmanager.Service
	dev     bool
	logger  *log.Logger
}

// NewResolver builds a resolver. The Secret Manager client is optional; in
// non-dev environments a missing client makes resolution fail rather than
// fall back to placeholders.
func NewResolver(ctx context.Context, project string, dev bool, requireSecretManager bool) (*Resolver, error) {
	r := &Resolver{
		project: project,
		dev:     dev,
		logger:  log.New(log.Writer(), "[SECRETS] ", log.LstdFlags),
	}
	if project != "" {
		svc, err := secretmanager.NewService(ctx)
		if err != nil {
			if !dev && requireSecretManager {
				return nil, fmt.Errorf("secretmanager.NewService: %w", err)
			}
			r.logger.Printf("⚠️  Secret Manager unavailable, env/placeholder resolution only: %v", err)
		} else {
			r.svc = svc
		}
	} else if !dev && requireSecretManager {
		return nil, fmt.Errorf("secret manager required outside dev but no project configured")
	}
	return r, nil
}

// Resolve returns the secret value for a reference. Plain strings without
// the secret-manager:// prefix resolve to themselves.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, refPrefix) {
		return ref, nil
	}
	name := strings.TrimPrefix(ref, refPrefix)

	envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}

	if r.svc != nil {
		resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", r.project, name)
		resp, err := r.svc.Projects.Secrets.Versions.Access(resource).Context(ctx).Do()
		if err == nil && resp.Payload != nil {
			data, decErr := base64.StdEncoding.DecodeString(resp.Payload.Data)
			if decErr != nil {
				return "", fmt.Errorf("decode secret %s: %w", name, decErr)
			}
			return string(data), nil
		}
		if err != nil {
			r.logger.Printf("⚠️  Secret Manager access failed for %s: %v", name, err)
		}
	}

	if r.dev {
		return "dev-placeholder-" + name, nil
	}
	return "", fmt.Errorf("secret %s not resolvable outside dev", name)
}
