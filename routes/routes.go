package routes

import (
	"context"
	"net/http"

	"docchat-service/models"
	"docchat-service/services"

	"github.com/gin-gonic/gin"
)

// SessionService runs tenant loads and chats.
type SessionService interface {
	Load(ctx context.Context, tenantID string) (*models.LoadResult, error)
	Chat(ctx context.Context, tenantID, message string) (*models.ChatResult, error)
	Analytics(tenantID string) (int64, error)
	History(tenantID string) ([]models.Turn, error)
}

// DocumentSaver stores uploaded files.
type DocumentSaver interface {
	Save(ctx context.Context, tenantID string, files []services.UploadFile) ([]models.DocumentRecord, error)
}

// LoadEnqueuer schedules background loads.
type LoadEnqueuer interface {
	EnqueueLoad(ctx context.Context, tenantID string) (string, error)
}

// Deps are the collaborators of the HTTP handlers. Queue may be nil.
type Deps struct {
	Sessions      SessionService
	Documents     DocumentSaver
	Queue         LoadEnqueuer
	PublicBaseURL string
}

// Setup registers every route on router. chatMiddleware runs before /chat only.
func Setup(router *gin.Engine, deps Deps, chatMiddleware ...gin.HandlerFunc) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello World!"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	SetupDocumentRoutes(router, deps)
	SetupChatRoutes(router, deps, chatMiddleware...)
	SetupWidgetRoutes(router, deps)
}
