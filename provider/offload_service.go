package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/entity"
	"github.com/tnqbao/gau-media-offload/infra"
	"github.com/tnqbao/gau-media-offload/repository"
	"github.com/tnqbao/gau-media-offload/utils"
)

// OffloadService runs the offload lifecycle: throttled uploads with outcome
// classification and tracking, the two-phase deferred local deletion, and
// remote cleanup when the owning record is destroyed. Every operation
// handles its errors locally and reports through classified results; nothing
// here retries automatically.
type OffloadService struct {
	cfg         *config.EnvConfig
	infra       *infra.Infra
	repo        *repository.MediaItemRepository
	gate        *ThrottleGate
	tracker     *StatusTracker
	coordinator *OffloadCoordinator
}

func NewOffloadService(cfg *config.EnvConfig, infraClient *infra.Infra, repo *repository.MediaItemRepository, gateStore GateStore) *OffloadService {
	return &OffloadService{
		cfg:         cfg,
		infra:       infraClient,
		repo:        repo,
		gate:        NewThrottleGate(gateStore, cfg.EdgeStorage.MaxConcurrentUploads, cfg.EdgeStorage.ThrottleTTL),
		tracker:     NewStatusTracker(repo),
		coordinator: NewOffloadCoordinator(repo, infraClient.Logger, cfg.EdgeStorage.OffloadAfterUpload),
	}
}

// Coordinator exposes the deferred deletion coordinator for callers that
// drive phase two directly.
func (s *OffloadService) Coordinator() *OffloadCoordinator {
	return s.coordinator
}

// Gate exposes the throttle gate.
func (s *OffloadService) Gate() *ThrottleGate {
	return s.gate
}

// Upload pushes a local file to edge storage under the sanitized remote
// key. When a record id is supplied the attempt and classified outcome are
// persisted on the record, and a successful upload runs the coordinator's
// first phase. Returns the public CDN URL on success.
func (s *OffloadService) Upload(ctx context.Context, localPath, remoteKey string, recordID *uuid.UUID) (string, entity.TransferResult) {
	if !s.infra.EdgeStorage.Enabled() {
		result := entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "edge storage not configured"}
		s.recordOutcome(ctx, recordID, result)
		return "", result
	}

	key := utils.SanitizeRemoteKey(remoteKey)
	if key == "" {
		result := entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "empty remote key"}
		s.recordOutcome(ctx, recordID, result)
		return "", result
	}

	if _, err := os.Stat(localPath); err != nil {
		result := entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "local file missing"}
		s.recordOutcome(ctx, recordID, result)
		return "", result
	}

	admitted, gateErr := s.gate.Acquire(ctx)
	if gateErr != nil {
		s.infra.Logger.WarningWithContextf(ctx, "[Offload Service] Throttle gate store unavailable, failing open: %v", gateErr)
	}
	if !admitted {
		result := entity.TransferResult{Outcome: entity.OutcomeRateLimited, Detail: "too many concurrent uploads"}
		s.recordOutcome(ctx, recordID, result)
		return "", result
	}
	defer s.gate.Release(ctx)

	if recordID != nil {
		if err := s.tracker.RecordAttempt(*recordID); err != nil {
			s.infra.Logger.WarningWithContextf(ctx, "[Offload Service] Failed to record attempt for media %s: %v", *recordID, err)
		}
	}

	ctx, span := s.infra.Telemetry.Tracer.Start(ctx, "offload.upload")
	defer span.End()

	started := time.Now()
	cdnURL, result := s.infra.EdgeStorage.Upload(ctx, localPath, key)
	s.infra.Telemetry.RecordUpload(ctx, string(result.Outcome), time.Since(started))

	s.recordOutcome(ctx, recordID, result)

	if !result.Succeeded() {
		s.infra.Logger.WarningWithContextf(ctx, "[Offload Service] Upload of %s failed: %s", localPath, result.Status())
		return "", result
	}

	s.infra.Logger.InfoWithContextf(ctx, "[Offload Service] Uploaded %s as %s", localPath, cdnURL)

	if recordID != nil {
		if err := s.coordinator.MarkUploaded(ctx, *recordID, cdnURL); err != nil {
			s.infra.Logger.ErrorWithContextf(ctx, err, "[Offload Service] Upload succeeded but phase one failed for media %s", *recordID)
		}
	}

	return cdnURL, result
}

// DeleteRemote removes the remote object for a key. A 404 from the storage
// API reports success: the object is already absent.
func (s *OffloadService) DeleteRemote(ctx context.Context, remoteKey string) (bool, entity.TransferResult) {
	if !s.infra.EdgeStorage.Enabled() {
		return false, entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "edge storage not configured"}
	}
	return s.infra.EdgeStorage.Delete(ctx, remoteKey)
}

// RemoteCleanupOutcome reports the result of best-effort remote cleanup so
// destruction callers can observe it instead of having it swallowed.
type RemoteCleanupOutcome struct {
	Attempted bool   `json:"attempted"`
	Succeeded bool   `json:"succeeded"`
	Status    string `json:"status,omitempty"`
}

// ReconcileDeletion deletes the remote object of a destroyed record. An
// empty CDN URL is a no-op. A failure never vetoes the destruction; the
// possibly orphaned remote object is an accepted residual risk, visible in
// the returned outcome.
func (s *OffloadService) ReconcileDeletion(ctx context.Context, mediaID uuid.UUID, cdnURL string) RemoteCleanupOutcome {
	if cdnURL == "" {
		return RemoteCleanupOutcome{}
	}

	key, ok := utils.ParseRemoteKey(cdnURL)
	if !ok {
		s.infra.Logger.WarningWithContextf(ctx, "[Offload Service] Cannot parse remote key from %q for media %s", cdnURL, mediaID)
		return RemoteCleanupOutcome{Attempted: true, Status: "error: unparsable cdn url"}
	}

	deleted, result := s.DeleteRemote(ctx, key)
	if !deleted {
		s.infra.Logger.WarningWithContextf(ctx, "[Offload Service] Remote cleanup for media %s failed: %s", mediaID, result.Status())
	} else {
		s.infra.Logger.InfoWithContextf(ctx, "[Offload Service] Remote object %s removed for media %s", key, mediaID)
	}

	return RemoteCleanupOutcome{Attempted: true, Succeeded: deleted, Status: result.Status()}
}

// RemoveRemoteCopy deletes the remote object of a record that is being
// kept, clearing its offload metadata on success.
func (s *OffloadService) RemoveRemoteCopy(ctx context.Context, item *entity.MediaItem) (RemoteCleanupOutcome, error) {
	outcome := s.ReconcileDeletion(ctx, item.ID, item.CDNURL)
	if outcome.Attempted && outcome.Succeeded {
		if err := s.repo.ClearRemoteState(item.ID); err != nil {
			return outcome, fmt.Errorf("clear remote state: %w", err)
		}
	}
	return outcome, nil
}

// OnMediaCreated handles the object-created event: load the record, derive
// a remote key when none was supplied, and run the upload pipeline.
func (s *OffloadService) OnMediaCreated(ctx context.Context, mediaID uuid.UUID, remoteKey string) (string, entity.TransferResult, error) {
	item, err := s.repo.FindByID(mediaID)
	if err != nil {
		return "", entity.TransferResult{}, fmt.Errorf("load media %s: %w", mediaID, err)
	}

	if remoteKey == "" {
		remoteKey = DefaultRemoteKey(item)
	}

	cdnURL, result := s.Upload(ctx, item.LocalPath, remoteKey, &item.ID)
	return cdnURL, result, nil
}

// OnVariantsGenerated handles the derivative-generation-complete event:
// persist the variant paths, then run the coordinator's deletion phase.
func (s *OffloadService) OnVariantsGenerated(ctx context.Context, mediaID uuid.UUID, variantPaths []string) error {
	if len(variantPaths) > 0 {
		encoded, err := entity.EncodeVariants(variantPaths)
		if err != nil {
			return fmt.Errorf("encode variant paths: %w", err)
		}
		if err := s.repo.UpdateVariantPaths(mediaID, encoded); err != nil {
			return fmt.Errorf("store variant paths: %w", err)
		}
	}

	item, err := s.repo.FindByID(mediaID)
	if err != nil {
		return fmt.Errorf("load media %s: %w", mediaID, err)
	}

	return s.coordinator.CompleteOffload(ctx, item)
}

// OnMediaDestroyed handles the record-destroyed event.
func (s *OffloadService) OnMediaDestroyed(ctx context.Context, mediaID uuid.UUID, cdnURL string) RemoteCleanupOutcome {
	return s.ReconcileDeletion(ctx, mediaID, cdnURL)
}

// DefaultRemoteKey shards uploads by record id so distinct records sharing
// a file name never collide in the storage zone.
func DefaultRemoteKey(item *entity.MediaItem) string {
	return fmt.Sprintf("media/%s/%s", item.ID, filepath.Base(item.LocalPath))
}

func (s *OffloadService) recordOutcome(ctx context.Context, recordID *uuid.UUID, result entity.TransferResult) {
	if recordID == nil {
		return
	}
	if err := s.tracker.RecordOutcome(*recordID, result); err != nil {
		s.infra.Logger.WarningWithContextf(ctx, "[Offload Service] Failed to record outcome for media %s: %v", *recordID, err)
	}
}
