// Package id provides unique identifier generation for jobs.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generate creates a new unique job ID.
// Format: job-<uuid>
// Example: job-5f1c9a4e-9a6e-4d8a-b9a1-3f2e8c7d6b5a
func Generate() string {
	return fmt.Sprintf("job-%s", uuid.NewString())
}
