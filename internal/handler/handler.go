// Package handler defines the common interface that all job handlers must
// implement, along with the registry that resolves a submitted job's kind to
// the handler that executes it.
package handler

import (
	"context"

	"github.com/mlenz/conveyor/internal/model"
)

// Handler executes jobs of one kind.
type Handler interface {
	// Run executes the job and returns its result bytes. The context carries
	// the per-job deadline; handlers must return promptly once it expires.
	Run(ctx context.Context, job *model.Job) ([]byte, error)

	// Describe reports the handler's name and what it does.
	Describe() Info
}

// Info describes a registered handler for the API surface.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
