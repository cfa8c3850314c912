package ports

import (
	"context"
)

// Secret is one stored secret value with metadata.
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretManager retrieves credentials (gateway terminal keys, cron secrets)
// from a secret backend.
type SecretManager interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
