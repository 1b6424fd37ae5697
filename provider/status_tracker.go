package provider

import (
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-offload/entity"
	"github.com/tnqbao/gau-media-offload/repository"
)

// StatusTracker persists per-record attempt counts and the last classified
// outcome. Last write wins; callers needing history keep their own audit log.
type StatusTracker struct {
	repo *repository.MediaItemRepository
}

func NewStatusTracker(repo *repository.MediaItemRepository) *StatusTracker {
	return &StatusTracker{repo: repo}
}

func (t *StatusTracker) RecordAttempt(id uuid.UUID) error {
	return t.repo.IncrementAttemptCount(id)
}

func (t *StatusTracker) RecordOutcome(id uuid.UUID, result entity.TransferResult) error {
	return t.repo.UpdateTransferStatus(id, result.Status(), time.Now())
}
