package dto

// RegisterMediaRequestDTO registers a locally stored file for offloading.
type RegisterMediaRequestDTO struct {
	LocalPath   string `json:"local_path" binding:"required"`
	ContentType string `json:"content_type"`
	RemoteKey   string `json:"remote_key"`
}

// TriggerUploadRequestDTO optionally overrides the remote key for an
// admin-initiated upload.
type TriggerUploadRequestDTO struct {
	RemoteKey string `json:"remote_key"`
}

// VariantsGeneratedRequestDTO signals that derivative generation finished
// for a record.
type VariantsGeneratedRequestDTO struct {
	VariantPaths []string `json:"variant_paths"`
}
