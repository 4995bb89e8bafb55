package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/teachback/teachback-backend/internal/http/handlers"
	httpMW "github.com/teachback/teachback-backend/internal/http/middleware"
)

type RouterConfig struct {
	ExtractionHandler   *httpH.ExtractionHandler
	ConversationHandler *httpH.ConversationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	r.GET("/healthcheck", httpH.HealthCheck)

	if cfg.ExtractionHandler != nil {
		r.POST("/extract/text", cfg.ExtractionHandler.ExtractText)
		r.POST("/extract/concepts", cfg.ExtractionHandler.ExtractConcepts)
	}
	if cfg.ConversationHandler != nil {
		r.POST("/conversation", cfg.ConversationHandler.Advance)
	}

	return r
}
