package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-offload/http/controller/dto"
	"github.com/tnqbao/gau-media-offload/infra/produce"
	providerPkg "github.com/tnqbao/gau-media-offload/provider"
	"github.com/tnqbao/gau-media-offload/utils"
)

// TriggerUpload runs an admin-initiated synchronous upload for a record.
func (ctrl *Controller) TriggerUpload(c *gin.Context) {
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

	var req dto.TriggerUploadRequestDTO
	_ = c.ShouldBindJSON(&req) // body is optional

	remoteKey := req.RemoteKey
	if remoteKey == "" {
		remoteKey = providerPkg.DefaultRemoteKey(item)
	}

	cdnURL, result := ctrl.Provider.OffloadService.Upload(ctx, item.LocalPath, remoteKey, &item.ID)
	if !result.Succeeded() {
		utils.JSON502(c, result.Status())
		return
	}

	utils.JSON200(c, gin.H{
		"cdn_url": cdnURL,
		"status":  result.Status(),
	})
}

// SignalVariantsGenerated accepts the derivative-generation-complete signal
// for a record and queues the deferred deletion phase.
func (ctrl *Controller) SignalVariantsGenerated(c *gin.Context) {
	ctx := c.Request.Context()

	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid media id")
		return
	}

	if _, err := ctrl.Repository.MediaItemRepo.FindByID(mediaID); err != nil {
		utils.JSON404(c, "Media not found")
		return
	}

	var req dto.VariantsGeneratedRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request: "+err.Error())
		return
	}

	msg := produce.VariantsGeneratedMessage{
		MediaID:      mediaID.String(),
		VariantPaths: req.VariantPaths,
	}
	if err := ctrl.Infra.Produce.OffloadService.PublishVariantsGenerated(ctx, msg); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Offload] Failed to queue variants event for media %s", mediaID)
		utils.JSON500(c, "Failed to queue variants event")
		return
	}

	utils.JSON202(c, "Variants event queued")
}

// RemoveRemoteCopy deletes the remote object of a record that is kept,
// clearing its offload metadata on success.
func (ctrl *Controller) RemoveRemoteCopy(c *gin.Context) {
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

	if item.CDNURL == "" {
		utils.JSON400(c, "Media has no remote copy")
		return
	}

	outcome, err := ctrl.Provider.OffloadService.RemoveRemoteCopy(ctx, item)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Offload] Remote copy removed but state not cleared for media %s", mediaID)
		utils.JSON500(c, "Remote copy removed but state not cleared")
		return
	}

	utils.JSON200(c, gin.H{"remote_cleanup": outcome})
}
