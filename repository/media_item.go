package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-offload/entity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MediaItemRepository struct {
	db *gorm.DB
}

func NewMediaItemRepository(db *gorm.DB) *MediaItemRepository {
	return &MediaItemRepository{db: db}
}

func (r *MediaItemRepository) Create(item *entity.MediaItem) error {
	return r.db.Create(item).Error
}

func (r *MediaItemRepository) FindByID(id uuid.UUID) (*entity.MediaItem, error) {
	var item entity.MediaItem
	err := r.db.Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *MediaItemRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&entity.MediaItem{}, "id = ?", id).Error
}

// IncrementAttemptCount overwrites the attempt counter with its incremented
// value. Last write wins; this is not an audit log.
func (r *MediaItemRepository) IncrementAttemptCount(id uuid.UUID) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

// UpdateTransferStatus overwrites last_status and its timestamp.
func (r *MediaItemRepository) UpdateTransferStatus(id uuid.UUID, status string, at time.Time) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_status":    status,
			"last_status_at": at,
		}).Error
}

func (r *MediaItemRepository) SetCDNURL(id uuid.UUID, cdnURL string) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		Update("cdn_url", cdnURL).Error
}

func (r *MediaItemRepository) MarkPendingOffload(id uuid.UUID) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		Update("pending_offload", true).Error
}

// MarkOffloaded flips the record to its terminal state: local files are
// gone, pending_offload is cleared in the same update.
func (r *MediaItemRepository) MarkOffloaded(id uuid.UUID, at time.Time) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"offloaded":       true,
			"offloaded_at":    at,
			"pending_offload": false,
		}).Error
}

// ClearRemoteState wipes all offload metadata after the remote object has
// been deleted.
func (r *MediaItemRepository) ClearRemoteState(id uuid.UUID) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cdn_url":         "",
			"pending_offload": false,
			"offloaded":       false,
			"offloaded_at":    nil,
			"attempt_count":   0,
			"last_status":     "",
			"last_status_at":  nil,
		}).Error
}

func (r *MediaItemRepository) UpdateVariantPaths(id uuid.UUID, paths datatypes.JSON) error {
	return r.db.Model(&entity.MediaItem{}).
		Where("id = ?", id).
		Update("variant_paths", paths).Error
}

func (r *MediaItemRepository) ListPendingOffload(limit int) ([]entity.MediaItem, error) {
	var items []entity.MediaItem
	err := r.db.Where("pending_offload = ?", true).
		Order("updated_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// OffloadStateCounts summarizes records per lifecycle state for reporting.
type OffloadStateCounts struct {
	NotOffloaded   int64 `json:"not_offloaded"`
	Uploaded       int64 `json:"uploaded"`
	PendingOffload int64 `json:"pending_offload"`
	Offloaded      int64 `json:"offloaded"`
}

func (r *MediaItemRepository) CountByOffloadState() (*OffloadStateCounts, error) {
	var counts OffloadStateCounts

	model := func() *gorm.DB { return r.db.Model(&entity.MediaItem{}) }

	if err := model().Where("offloaded = ?", true).Count(&counts.Offloaded).Error; err != nil {
		return nil, err
	}
	if err := model().Where("offloaded = ? AND pending_offload = ?", false, true).
		Count(&counts.PendingOffload).Error; err != nil {
		return nil, err
	}
	if err := model().Where("offloaded = ? AND pending_offload = ? AND cdn_url <> ''", false, false).
		Count(&counts.Uploaded).Error; err != nil {
		return nil, err
	}
	if err := model().Where("offloaded = ? AND pending_offload = ? AND (cdn_url = '' OR cdn_url IS NULL)", false, false).
		Count(&counts.NotOffloaded).Error; err != nil {
		return nil, err
	}

	return &counts, nil
}
