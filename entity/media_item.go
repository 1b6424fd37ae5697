package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OffloadState describes where a media item is in the offload lifecycle
type OffloadState string

const (
	OffloadStateNotOffloaded   OffloadState = "NOT_OFFLOADED"
	OffloadStateUploaded       OffloadState = "UPLOADED"
	OffloadStatePendingOffload OffloadState = "PENDING_OFFLOAD"
	OffloadStateOffloaded      OffloadState = "OFFLOADED"
)

// MediaItem is the owning record for a locally stored media file and its
// size variants. Variant paths are filled in by the derivative generator
// after the primary upload, so they may be empty for freshly created items.
type MediaItem struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	LocalPath    string         `json:"local_path" gorm:"type:varchar(1024);not null"`
	ContentType  string         `json:"content_type" gorm:"type:varchar(255)"`
	SizeBytes    int64          `json:"size_bytes" gorm:"not null;default:0"`
	VariantPaths datatypes.JSON `json:"variant_paths" gorm:"type:jsonb"`

	AttemptCount   int        `json:"attempt_count" gorm:"not null;default:0"`
	LastStatus     string     `json:"last_status" gorm:"type:varchar(255)"`
	LastStatusAt   *time.Time `json:"last_status_at"`
	CDNURL         string     `json:"cdn_url" gorm:"column:cdn_url;type:varchar(1024)"`
	PendingOffload bool       `json:"pending_offload" gorm:"not null;default:false"`
	Offloaded      bool       `json:"offloaded" gorm:"not null;default:false;index"`
	OffloadedAt    *time.Time `json:"offloaded_at"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// OffloadState derives the lifecycle state from the persisted flags.
// Offloaded wins over PendingOffload so a record never reports both.
func (m *MediaItem) OffloadState() OffloadState {
	switch {
	case m.Offloaded:
		return OffloadStateOffloaded
	case m.PendingOffload:
		return OffloadStatePendingOffload
	case m.CDNURL != "":
		return OffloadStateUploaded
	default:
		return OffloadStateNotOffloaded
	}
}

// Variants decodes the variant path list. A nil or malformed column is
// treated as "no variants yet".
func (m *MediaItem) Variants() []string {
	if len(m.VariantPaths) == 0 {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(m.VariantPaths, &paths); err != nil {
		return nil
	}
	return paths
}

// EncodeVariants marshals variant paths for the jsonb column.
func EncodeVariants(paths []string) (datatypes.JSON, error) {
	data, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
