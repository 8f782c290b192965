package instance

import (
	"os"

	"github.com/supawave/supawave-backend/pkg/env"
)

const fallbackID = "worker-0"

// GetID identifies this process in logs and lock diagnostics. It prefers
// SUPAWAVE_INSTANCE_ID, then the Cloud Run revision, then the host name.
func GetID() string {
	if id, ok := env.First("SUPAWAVE_INSTANCE_ID", "K_REVISION"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
