package api

import (
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"portrait-pipeline/internal/api/handler"
	"portrait-pipeline/pkg/router"

	_ "portrait-pipeline/docs"
)

// RegisterGatewayRoutes mounts the public gateway API with CORS.
func RegisterGatewayRoutes(r *router.Router, h *handler.GatewayHandler, allowedOrigins []string) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key", "X-Amz-Security-Token"},
		MaxAge:         300,
	}))

	r.POST("/apis/images/upload", h.SubmitRequest)
	r.OPTIONS("/apis/images/upload", h.Preflight)
	r.GET("/apis/images/*", h.FetchResult)
	r.OPTIONS("/apis/images/*", h.Preflight)

	r.GET("/api/v1/requests/*", h.GetRequestStatus)
	registerCommon(r)
}

// RegisterEventRoutes mounts the notification endpoint of the stage host.
func RegisterEventRoutes(r *router.Router, h *handler.EventHandler) {
	r.POST("/api/v1/events", h.ReceiveEvents)
	registerCommon(r)
}

func registerCommon(r *router.Router) {
	r.GET("/healthz", handler.Healthz)
	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
}
