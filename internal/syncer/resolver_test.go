package syncer_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/syncer"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(title string, updated time.Time) *domain.Task {
		return &domain.Task{ID: id, Title: title, CreatedAt: base, UpdatedAt: updated}
	}

	tests := []struct {
		name   string
		local  *domain.Task
		remote *domain.Task
		want   string
	}{
		{"remote strictly newer", at("local", base), at("remote", base.Add(time.Nanosecond)), "remote"},
		{"local strictly newer", at("local", base.Add(time.Hour)), at("remote", base), "local"},
		{"equal timestamps keep local", at("local", base), at("remote", base), "local"},
		{"missing remote keeps local", at("local", base), nil, "local"},
		{"missing local takes remote", nil, at("remote", base), "remote"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			winner := syncer.Resolve(tc.local, tc.remote)
			assert.Equal(t, tc.want, winner.Title)
		})
	}
}

func TestResolveTakesWholeRecord(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	now := time.Now().UTC()
	local := &domain.Task{ID: id, Title: "local", Description: "local notes", Completed: true, UpdatedAt: now}
	remote := &domain.Task{ID: id, Title: "remote", UpdatedAt: now.Add(time.Second)}

	winner := syncer.Resolve(local, remote)

	assert.Same(t, remote, winner)
	assert.Empty(t, winner.Description, "fields must not be merged")
	assert.False(t, winner.Completed)
}
