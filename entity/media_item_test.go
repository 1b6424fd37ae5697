package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestOffloadStateDerivation(t *testing.T) {
	tests := []struct {
		name string
		item MediaItem
		want OffloadState
	}{
		{"fresh record", MediaItem{}, OffloadStateNotOffloaded},
		{"uploaded", MediaItem{CDNURL: "https://z.b-cdn.net/a.jpg"}, OffloadStateUploaded},
		{"pending offload", MediaItem{CDNURL: "https://z.b-cdn.net/a.jpg", PendingOffload: true}, OffloadStatePendingOffload},
		{"offloaded", MediaItem{CDNURL: "https://z.b-cdn.net/a.jpg", Offloaded: true}, OffloadStateOffloaded},
		{"offloaded wins over stale pending flag", MediaItem{CDNURL: "https://z.b-cdn.net/a.jpg", PendingOffload: true, Offloaded: true}, OffloadStateOffloaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.OffloadState())
		})
	}
}

func TestVariantsRoundTrip(t *testing.T) {
	paths := []string{"/data/media/a_small.jpg", "/data/media/a_medium.jpg"}

	encoded, err := EncodeVariants(paths)
	require.NoError(t, err)

	item := MediaItem{VariantPaths: encoded}
	assert.Equal(t, paths, item.Variants())
}

func TestVariantsEmptyAndMalformed(t *testing.T) {
	item := MediaItem{}
	assert.Nil(t, item.Variants())

	item.VariantPaths = datatypes.JSON(`{"not":"a list"}`)
	assert.Nil(t, item.Variants())
}
