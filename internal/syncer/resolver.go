package syncer

import "github.com/phrazzld/tasksync/internal/domain"

// Resolve picks the authoritative version of a task by last-writer-wins on
// UpdatedAt. The remote version wins only when strictly newer; ties keep the
// local version. The whole record wins, fields are never merged.
func Resolve(local, remote *domain.Task) *domain.Task {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return remote
	}
	return local
}
