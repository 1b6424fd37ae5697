package infra

import (
	"context"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/entity"
	"github.com/tnqbao/gau-media-offload/utils"
)

const (
	uploadTimeoutFloor = 30 * time.Second
	uploadTimeoutCeil  = 120 * time.Second

	// One extra second of timeout per this many bytes of file body.
	uploadBytesPerSecond = 102400

	deleteTimeout = 30 * time.Second
)

// EdgeStorageClient talks to the Bunny edge storage HTTP API. Uploads are a
// single PUT of the file body, deletes a single DELETE. Redirect responses
// are not followed; the underlying status decides the outcome.
type EdgeStorageClient struct {
	AccessKey      string
	StorageZone    string
	Region         string
	CustomHostname string

	// apiBase overrides the storage API base URL (scheme + host). Empty in
	// production; set for staging endpoints and tests.
	apiBase string

	// disabled is the operator's explicit off switch. It wins over
	// configured credentials.
	disabled bool

	client *http.Client
}

func InitEdgeStorageClient(cfg *config.EnvConfig) *EdgeStorageClient {
	client := NewEdgeStorageClient(
		cfg.EdgeStorage.AccessKey,
		cfg.EdgeStorage.StorageZone,
		cfg.EdgeStorage.Region,
		cfg.EdgeStorage.CustomHostname,
		cfg.EdgeStorage.APIBase,
	)

	if !cfg.EdgeStorage.Enabled {
		log.Println("Edge storage is not configured, transfers are disabled")
		client.disabled = true
	}

	return client
}

// NewEdgeStorageClient builds a client for the given zone. apiBase overrides
// the storage API base URL; leave it empty for the production host.
func NewEdgeStorageClient(accessKey, storageZone, region, customHostname, apiBase string) *EdgeStorageClient {
	return &EdgeStorageClient{
		AccessKey:      accessKey,
		StorageZone:    storageZone,
		Region:         region,
		CustomHostname: customHostname,
		apiBase:        apiBase,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (s *EdgeStorageClient) Enabled() bool {
	return !s.disabled && s.AccessKey != "" && s.StorageZone != ""
}

// AdaptiveUploadTimeout computes the per-upload timeout from the file size:
// a 30s floor, one extra second per 100KB, capped at 120s.
func AdaptiveUploadTimeout(sizeBytes int64) time.Duration {
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	seconds := uploadTimeoutFloor.Seconds() + float64(sizeBytes)/uploadBytesPerSecond
	if seconds > uploadTimeoutCeil.Seconds() {
		return uploadTimeoutCeil
	}
	return time.Duration(seconds * float64(time.Second))
}

func (s *EdgeStorageClient) StorageURL(remoteKey string) string {
	if s.apiBase != "" {
		return s.apiBase + "/" + s.StorageZone + "/" + utils.SanitizeRemoteKey(remoteKey)
	}
	return utils.BuildStorageURL(s.StorageZone, s.Region, remoteKey)
}

func (s *EdgeStorageClient) CDNURL(remoteKey string) string {
	return utils.BuildCDNURL(s.StorageZone, s.CustomHostname, remoteKey)
}

// Upload PUTs the local file under the sanitized remote key. Returns the
// public CDN URL on success, and the classified transfer result either way.
func (s *EdgeStorageClient) Upload(ctx context.Context, localPath, remoteKey string) (string, entity.TransferResult) {
	key := utils.SanitizeRemoteKey(remoteKey)

	file, err := os.Open(localPath)
	if err != nil {
		return "", entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "cannot read local file"}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "cannot stat local file"}
	}

	ctx, cancel := context.WithTimeout(ctx, AdaptiveUploadTimeout(info.Size()))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.StorageURL(key), file)
	if err != nil {
		return "", entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "invalid storage URL"}
	}
	req.Header.Set("AccessKey", s.AccessKey)
	req.Header.Set("Content-Type", contentTypeForPath(localPath))
	req.ContentLength = info.Size()

	resp, err := s.client.Do(req)
	if err != nil {
		return "", entity.ClassifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result := entity.ClassifyHTTPStatus(resp.StatusCode)
	if !result.Succeeded() {
		return "", result
	}

	return s.CDNURL(key), result
}

// Delete removes the remote object. A 404 counts as success: the object is
// already absent, which is the goal.
func (s *EdgeStorageClient) Delete(ctx context.Context, remoteKey string) (bool, entity.TransferResult) {
	key := utils.SanitizeRemoteKey(remoteKey)

	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.StorageURL(key), nil)
	if err != nil {
		return false, entity.TransferResult{Outcome: entity.OutcomeRequestFailed, Detail: "invalid storage URL"}
	}
	req.Header.Set("AccessKey", s.AccessKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, entity.ClassifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result := entity.ClassifyHTTPStatus(resp.StatusCode)
	ok := result.Succeeded() || result.Outcome == entity.OutcomeNotFound

	return ok, result
}

func contentTypeForPath(path string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
