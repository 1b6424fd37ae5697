package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/entity"
	"github.com/tnqbao/gau-media-offload/infra"
	"github.com/tnqbao/gau-media-offload/repository"
)

type serviceFixture struct {
	svc   *OffloadService
	repo  *repository.MediaItemRepository
	store *fakeGateStore
}

func newServiceFixture(t *testing.T, apiBase string, offloadAfterUpload bool) *serviceFixture {
	t.Helper()

	repo := repository.NewMediaItemRepository(newTestDB(t))
	logger := newTestLogger()
	store := newFakeGateStore()

	cfg := &config.EnvConfig{}
	cfg.EdgeStorage.MaxConcurrentUploads = 3
	cfg.EdgeStorage.ThrottleTTL = time.Minute
	cfg.EdgeStorage.OffloadAfterUpload = offloadAfterUpload

	infraClient := &infra.Infra{
		EdgeStorage: infra.NewEdgeStorageClient("test-key", "myzone", "", "", apiBase),
		Logger:      logger,
		Telemetry:   &infra.TelemetryClient{Tracer: otel.Tracer("offload-test")},
	}

	return &serviceFixture{
		svc: &OffloadService{
			cfg:         cfg,
			infra:       infraClient,
			repo:        repo,
			gate:        NewThrottleGate(store, 3, time.Minute),
			tracker:     NewStatusTracker(repo),
			coordinator: NewOffloadCoordinator(repo, logger, offloadAfterUpload),
		},
		repo:  repo,
		store: store,
	}
}

func TestUploadLifecycleToOffloaded(t *testing.T) {
	ctx := context.Background()

	var putPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			putPath = r.URL.Path
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	fx := newServiceFixture(t, server.URL, true)

	dir := t.TempDir()
	primary := writeLocalFile(t, dir, "photo.jpg")
	variant := writeLocalFile(t, dir, "photo_small.jpg")

	item := &entity.MediaItem{ID: uuid.New(), LocalPath: primary, SizeBytes: 250000}
	require.NoError(t, fx.repo.Create(item))

	cdnURL, result := fx.svc.Upload(ctx, primary, "media/photo.jpg", &item.ID)
	require.True(t, result.Succeeded())
	assert.Equal(t, "https://myzone.b-cdn.net/media/photo.jpg", cdnURL)
	assert.Equal(t, "/myzone/media/photo.jpg", putPath)

	loaded, err := fx.repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OffloadStatePendingOffload, loaded.OffloadState())
	assert.Equal(t, 1, loaded.AttemptCount)
	assert.Equal(t, "success", loaded.LastStatus)
	require.NotNil(t, loaded.LastStatusAt)
	assert.FileExists(t, primary, "phase one never deletes local files")

	// Derivative generation finishes; phase two removes the local copies.
	require.NoError(t, fx.svc.OnVariantsGenerated(ctx, item.ID, []string{variant}))

	assert.NoFileExists(t, primary)
	assert.NoFileExists(t, variant)

	loaded, err = fx.repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OffloadStateOffloaded, loaded.OffloadState())

	// Gate fully released after the upload.
	count, _, _ := fx.store.GetCounter(ctx, ThrottleCounterKey)
	assert.Zero(t, count)
}

func TestUploadFailureIsClassifiedAndRecorded(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fx := newServiceFixture(t, server.URL, true)

	primary := writeLocalFile(t, t.TempDir(), "photo.jpg")
	item := &entity.MediaItem{ID: uuid.New(), LocalPath: primary}
	require.NoError(t, fx.repo.Create(item))

	cdnURL, result := fx.svc.Upload(ctx, primary, "media/photo.jpg", &item.ID)
	assert.Empty(t, cdnURL)
	assert.Equal(t, entity.OutcomeServerError, result.Outcome)

	loaded, err := fx.repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AttemptCount)
	assert.Equal(t, "error: server error", loaded.LastStatus)
	assert.Equal(t, entity.OffloadStateNotOffloaded, loaded.OffloadState())
	assert.FileExists(t, primary)
}

func TestUploadDeniedByThrottle(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, "http://localhost:1", true)

	// Saturate the gate.
	require.NoError(t, fx.store.SetCounter(ctx, ThrottleCounterKey, 3, time.Minute))

	primary := writeLocalFile(t, t.TempDir(), "photo.jpg")
	item := &entity.MediaItem{ID: uuid.New(), LocalPath: primary}
	require.NoError(t, fx.repo.Create(item))

	cdnURL, result := fx.svc.Upload(ctx, primary, "media/photo.jpg", &item.ID)
	assert.Empty(t, cdnURL)
	assert.Equal(t, entity.OutcomeRateLimited, result.Outcome)
	assert.Equal(t, "error: too many concurrent uploads", result.Status())

	loaded, err := fx.repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "error: too many concurrent uploads", loaded.LastStatus)
	assert.Zero(t, loaded.AttemptCount, "a denied upload is not an attempt")

	// The denial did not consume a slot.
	count, _, _ := fx.store.GetCounter(ctx, ThrottleCounterKey)
	assert.Equal(t, 3, count)
}

func TestUploadWithStorageDisabled(t *testing.T) {
	fx := newServiceFixture(t, "http://localhost:1", true)
	fx.svc.infra.EdgeStorage = infra.NewEdgeStorageClient("", "", "", "", "")

	primary := writeLocalFile(t, t.TempDir(), "photo.jpg")

	cdnURL, result := fx.svc.Upload(context.Background(), primary, "media/photo.jpg", nil)
	assert.Empty(t, cdnURL)
	assert.Equal(t, "error: edge storage not configured", result.Status())
}

func TestUploadWithStorageExplicitlyDisabled(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	fx := newServiceFixture(t, server.URL, true)

	// Credentials present, operator switched transfers off.
	cfg := &config.EnvConfig{}
	cfg.EdgeStorage.AccessKey = "key-123"
	cfg.EdgeStorage.StorageZone = "myzone"
	cfg.EdgeStorage.APIBase = server.URL
	cfg.EdgeStorage.Enabled = false
	fx.svc.infra.EdgeStorage = infra.InitEdgeStorageClient(cfg)

	primary := writeLocalFile(t, t.TempDir(), "photo.jpg")

	cdnURL, result := fx.svc.Upload(context.Background(), primary, "media/photo.jpg", nil)
	assert.Empty(t, cdnURL)
	assert.Equal(t, "error: edge storage not configured", result.Status())
	assert.Zero(t, hits, "a disabled client must never reach the storage API")
}

func TestUploadMissingLocalFileWithoutTransfer(t *testing.T) {
	fx := newServiceFixture(t, "http://localhost:1", true)

	item := &entity.MediaItem{ID: uuid.New(), LocalPath: "/nonexistent/photo.jpg"}
	require.NoError(t, fx.repo.Create(item))

	_, result := fx.svc.Upload(context.Background(), item.LocalPath, "media/photo.jpg", &item.ID)
	assert.Equal(t, "error: local file missing", result.Status())

	loaded, err := fx.repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "error: local file missing", loaded.LastStatus)
}

func TestOnMediaCreatedDerivesRemoteKey(t *testing.T) {
	ctx := context.Background()

	var putPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		putPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	fx := newServiceFixture(t, server.URL, false)

	primary := writeLocalFile(t, t.TempDir(), "photo.jpg")
	item := &entity.MediaItem{ID: uuid.New(), LocalPath: primary}
	require.NoError(t, fx.repo.Create(item))

	cdnURL, result, err := fx.svc.OnMediaCreated(ctx, item.ID, "")
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	wantKey := "media/" + item.ID.String() + "/photo.jpg"
	assert.Equal(t, "/myzone/"+wantKey, putPath)
	assert.True(t, strings.HasSuffix(cdnURL, wantKey))
}

func TestReconcileDeletion(t *testing.T) {
	ctx := context.Background()

	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	fx := newServiceFixture(t, server.URL, true)
	id := uuid.New()

	// No remote copy: nothing to reconcile.
	outcome := fx.svc.ReconcileDeletion(ctx, id, "")
	assert.False(t, outcome.Attempted)

	// Unparsable CDN URL: attempted but never reached the API.
	outcome = fx.svc.ReconcileDeletion(ctx, id, "://bad")
	assert.True(t, outcome.Attempted)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "error: unparsable cdn url", outcome.Status)

	// Clean delete.
	outcome = fx.svc.ReconcileDeletion(ctx, id, "https://myzone.b-cdn.net/media/photo.jpg")
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, "success", outcome.Status)

	// Already absent remotely counts as done.
	status = http.StatusNotFound
	outcome = fx.svc.ReconcileDeletion(ctx, id, "https://myzone.b-cdn.net/media/photo.jpg")
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, "error: not found", outcome.Status)

	// A real failure is reported, never escalated.
	status = http.StatusInternalServerError
	outcome = fx.svc.ReconcileDeletion(ctx, id, "https://myzone.b-cdn.net/media/photo.jpg")
	assert.True(t, outcome.Attempted)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "error: server error", outcome.Status)
}

func TestRemoveRemoteCopyClearsState(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fx := newServiceFixture(t, server.URL, true)

	item := &entity.MediaItem{
		ID:        uuid.New(),
		LocalPath: "/data/media/photo.jpg",
		CDNURL:    "https://myzone.b-cdn.net/media/photo.jpg",
		Offloaded: true,
	}
	require.NoError(t, fx.repo.Create(item))
	require.NoError(t, fx.repo.UpdateTransferStatus(item.ID, "success", time.Now()))

	outcome, err := fx.svc.RemoveRemoteCopy(ctx, item)
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)

	loaded, err := fx.repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.CDNURL)
	assert.Empty(t, loaded.LastStatus)
	assert.Zero(t, loaded.AttemptCount)
	assert.Equal(t, entity.OffloadStateNotOffloaded, loaded.OffloadState())
}
