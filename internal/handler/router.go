package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server holds the handlers the router dispatches to. Metrics is optional.
type Server struct {
	Files   *FileHandler
	Layers  *LayerHandler
	WS      *WSHandler
	Metrics http.Handler
}

// NewRouter builds the gin engine serving the API.
func NewRouter(s Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog())
	r.Use(CORS())

	api := r.Group("/api")
	{
		// Lookup and content APIs
		api.GET("/find", s.Files.Find)
		api.GET("/files/*name", s.Files.GetFile)
		api.GET("/raw/*name", s.Files.GetRaw)

		// Layer management APIs
		api.GET("/layers", s.Layers.GetLayers)
		api.POST("/layers", s.Layers.AddLayer)
		api.DELETE("/layers", s.Layers.RemoveLayer)
		api.GET("/tree", s.Layers.GetTree)
		api.PUT("/exclude", s.Layers.UpdateExclude)
		api.DELETE("/cache", s.Layers.ClearCache)

		if s.WS != nil {
			api.GET("/ws", s.WS.HandleWS)
		}
	}

	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics))
	}
	return r
}
