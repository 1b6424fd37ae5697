package controller

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-offload/entity"
	"github.com/tnqbao/gau-media-offload/http/controller/dto"
	"github.com/tnqbao/gau-media-offload/infra/produce"
	"github.com/tnqbao/gau-media-offload/utils"
)

// RegisterMedia records a locally stored file and queues it for upload.
func (ctrl *Controller) RegisterMedia(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterMediaRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request: "+err.Error())
		return
	}

	info, err := os.Stat(req.LocalPath)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Media] Local file %s is not readable: %v", req.LocalPath, err)
		utils.JSON400(c, "Local file does not exist or is not readable")
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	item := &entity.MediaItem{
		ID:          uuid.New(),
		LocalPath:   req.LocalPath,
		ContentType: contentType,
		SizeBytes:   info.Size(),
	}

	if err := ctrl.Repository.MediaItemRepo.Create(item); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Media] Failed to create media record")
		utils.JSON500(c, "Failed to create media record")
		return
	}

	msg := produce.MediaCreatedMessage{
		MediaID:   item.ID.String(),
		LocalPath: item.LocalPath,
		RemoteKey: req.RemoteKey,
	}
	if err := ctrl.Infra.Produce.OffloadService.PublishMediaCreated(ctx, msg); err != nil {
		// The record exists; the upload can still be triggered manually.
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Media] Media %s created but failed to queue for upload: %v", item.ID, err)
	}

	utils.JSON201(c, item)
}

// GetMediaStatus returns the record with its derived lifecycle state.
func (ctrl *Controller) GetMediaStatus(c *gin.Context) {
	ctx := c.Request.Context()

	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid media id")
		return
	}

	item, err := ctrl.Repository.MediaItemRepo.FindByID(mediaID)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Media] Media %s not found: %v", mediaID, err)
		utils.JSON404(c, "Media not found")
		return
	}

	utils.JSON200(c, gin.H{
		"media": item,
		"state": item.OffloadState(),
	})
}

// DeleteMedia destroys the record. Remote cleanup is attempted first and
// reported in the response, but never blocks the destruction.
func (ctrl *Controller) DeleteMedia(c *gin.Context) {
	ctx := c.Request.Context()

	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid media id")
		return
	}

	item, err := ctrl.Repository.MediaItemRepo.FindByID(mediaID)
	if err != nil {
		utils.JSON404(c, "Media not found")
		return
	}

	outcome := ctrl.Provider.OffloadService.ReconcileDeletion(ctx, mediaID, item.CDNURL)

	if err := ctrl.Repository.MediaItemRepo.Delete(mediaID); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Media] Failed to delete media %s", mediaID)
		utils.JSON500(c, "Failed to delete media record")
		return
	}

	// The row is gone; a failed cleanup gets one more pass through the
	// destroyed queue so the remote object is not silently orphaned.
	if outcome.Attempted && !outcome.Succeeded {
		msg := produce.MediaDestroyedMessage{
			MediaID: mediaID.String(),
			CDNURL:  item.CDNURL,
		}
		if err := ctrl.Infra.Produce.OffloadService.PublishMediaDestroyed(ctx, msg); err != nil {
			ctrl.Infra.Logger.WarningWithContextf(ctx, "[Media] Failed to queue destroyed event for media %s: %v", mediaID, err)
		}
	}

	utils.JSON200(c, gin.H{
		"deleted":        true,
		"remote_cleanup": outcome,
	})
}

// pendingOffloadListLimit caps the per-request pending listing; records
// beyond it show up once earlier ones complete.
const pendingOffloadListLimit = 50

// GetOffloadStatus summarizes records per lifecycle state and lists the
// oldest records still waiting for their deletion phase.
func (ctrl *Controller) GetOffloadStatus(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := ctrl.Repository.MediaItemRepo.CountByOffloadState()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Media] Failed to count offload states")
		utils.JSON500(c, "Failed to compute offload status")
		return
	}

	pending, err := ctrl.Repository.MediaItemRepo.ListPendingOffload(pendingOffloadListLimit)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Media] Failed to list pending offload records")
		utils.JSON500(c, "Failed to compute offload status")
		return
	}

	utils.JSON200(c, gin.H{
		"counts":          counts,
		"pending_offload": pending,
	})
}
