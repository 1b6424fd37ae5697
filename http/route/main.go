package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-media-offload/http/controller"
	middlewares "github.com/tnqbao/gau-media-offload/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	apiRoutes := r.Group("/api/v1/offload")
	{
		apiRoutes.Use(middles.AuthMiddleware)

		apiRoutes.GET("/status", ctrl.GetOffloadStatus)

		mediaRoutes := apiRoutes.Group("/media")
		{
			mediaRoutes.GET("/:id", ctrl.GetMediaStatus)

			// Transfer-initiating and destructive routes are admin-only.
			mediaRoutes.POST("/", middles.AdminMiddleware, ctrl.RegisterMedia)
			mediaRoutes.POST("/:id/upload", middles.AdminMiddleware, ctrl.TriggerUpload)
			mediaRoutes.POST("/:id/variants", middles.AdminMiddleware, ctrl.SignalVariantsGenerated)
			mediaRoutes.DELETE("/:id/remote", middles.AdminMiddleware, ctrl.RemoveRemoteCopy)
			mediaRoutes.DELETE("/:id", middles.AdminMiddleware, ctrl.DeleteMedia)
		}
	}
	return r
}
