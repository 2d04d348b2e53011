package api

import (
	"context"

	"github.com/ellevenagent/project-dashboard/domain"
)

// Storage abstracts persistence for handlers. Satisfied by every backend in
// the storage package, including the cache wrapper.
type Storage interface {
	List(ctx context.Context) ([]domain.Task, error)
	Upsert(ctx context.Context, patch domain.TaskPatch) (domain.Task, bool, error)
	Delete(ctx context.Context, id int64) error
	Kind() string
}
