package provider

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-offload/entity"
	"github.com/tnqbao/gau-media-offload/infra"
	"github.com/tnqbao/gau-media-offload/repository"
)

// OffloadCoordinator implements the two-phase offload policy. Phase one
// only marks intent after a successful upload; local files are deleted
// strictly in phase two, after the derivative generator has signalled
// completion for the record. The ordering lives in the persisted
// pending_offload flag, not in a lock or timer.
type OffloadCoordinator struct {
	repo               *repository.MediaItemRepository
	logger             *infra.LoggerClient
	offloadAfterUpload bool
}

func NewOffloadCoordinator(repo *repository.MediaItemRepository, logger *infra.LoggerClient, offloadAfterUpload bool) *OffloadCoordinator {
	return &OffloadCoordinator{
		repo:               repo,
		logger:             logger,
		offloadAfterUpload: offloadAfterUpload,
	}
}

// MarkUploaded runs phase one for a record whose upload just succeeded:
// persist the CDN URL, and mark the record pending offload when the
// offload-after-upload policy is on. Never deletes anything.
func (c *OffloadCoordinator) MarkUploaded(ctx context.Context, id uuid.UUID, cdnURL string) error {
	if err := c.repo.SetCDNURL(id, cdnURL); err != nil {
		return fmt.Errorf("persist cdn url: %w", err)
	}

	if !c.offloadAfterUpload {
		return nil
	}

	if err := c.repo.MarkPendingOffload(id); err != nil {
		return fmt.Errorf("mark pending offload: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[Offload Coordinator] Media %s marked pending offload", id)
	return nil
}

// CompleteOffload runs phase two on the derivative-generation-complete
// signal. The primary local file is deleted first; if that fails the record
// stays PENDING_OFFLOAD and no variant is touched, so derivatives are never
// orphaned from their primary. Variant deletion is best-effort.
func (c *OffloadCoordinator) CompleteOffload(ctx context.Context, item *entity.MediaItem) error {
	switch item.OffloadState() {
	case entity.OffloadStateOffloaded:
		// Re-generation after offload does not re-arm the cycle.
		c.logger.InfoWithContextf(ctx, "[Offload Coordinator] Media %s already offloaded, nothing to do", item.ID)
		return nil
	case entity.OffloadStatePendingOffload:
		// proceed
	default:
		c.logger.InfoWithContextf(ctx, "[Offload Coordinator] Media %s is %s, not pending offload", item.ID, item.OffloadState())
		return nil
	}

	if item.CDNURL == "" {
		return fmt.Errorf("media %s is pending offload without a cdn url", item.ID)
	}

	if err := os.Remove(item.LocalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete primary file %s: %w", item.LocalPath, err)
	}

	for _, variant := range item.Variants() {
		if err := os.Remove(variant); err != nil && !os.IsNotExist(err) {
			c.logger.WarningWithContextf(ctx, "[Offload Coordinator] Failed to delete variant %s of media %s: %v", variant, item.ID, err)
		}
	}

	if err := c.repo.MarkOffloaded(item.ID, time.Now()); err != nil {
		return fmt.Errorf("mark offloaded: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[Offload Coordinator] Media %s offloaded, local copies removed", item.ID)
	return nil
}
