package routes

import (
	"fmt"
	"net/http"

	"docchat-service/internal/logger"
	"docchat-service/middleware"
	"docchat-service/models"
	"docchat-service/services"
	"docchat-service/utils"

	"github.com/gin-gonic/gin"
)

func SetupDocumentRoutes(router *gin.Engine, deps Deps) {
	router.POST("/upload_documents/:company_id", handleUpload(deps))
	router.POST("/load_documents/:company_id", handleLoad(deps))
}

// handleUpload stores the multipart "files" and then loads the tenant.
func handleUpload(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("company_id")
		if err := models.ValidateTenantID(tenantID); err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}
		middleware.SetTenant(c, tenantID)

		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			utils.RespondWithBadRequest(c, "No files provided in the \"files\" field", nil)
			return
		}

		files := make([]services.UploadFile, 0, len(headers))
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				utils.RespondWithBadRequest(c, fmt.Sprintf("Cannot read %s", header.Filename), nil)
				return
			}
			defer f.Close()
			files = append(files, services.UploadFile{Name: header.Filename, Reader: f})
		}

		records, err := deps.Documents.Save(c.Request.Context(), tenantID, files)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		ctx, cancel := utils.WithLoadTimeout(c.Request.Context())
		defer cancel()
		result, err := deps.Sessions.Load(ctx, tenantID)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		logger.Info("Documents uploaded", "tenant_id", tenantID, "files", len(records), "request_id", middleware.GetRequestID(c))
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Documents uploaded and processed for company ID: %s", tenantID),
			"files":   records,
			"load":    result,
		})
	}
}

// handleLoad loads the tenant synchronously, or enqueues the load with ?async=true.
func handleLoad(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("company_id")
		if err := models.ValidateTenantID(tenantID); err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}
		middleware.SetTenant(c, tenantID)

		if c.Query("async") == "true" {
			if deps.Queue == nil {
				utils.RespondWithBadRequest(c, "Asynchronous loading is not enabled", nil)
				return
			}
			taskID, err := deps.Queue.EnqueueLoad(c.Request.Context(), tenantID)
			if err != nil {
				utils.RespondWithServiceError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"message": fmt.Sprintf("Document load queued for company ID: %s", tenantID),
				"task_id": taskID,
			})
			return
		}

		ctx, cancel := utils.WithLoadTimeout(c.Request.Context())
		defer cancel()
		result, err := deps.Sessions.Load(ctx, tenantID)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Documents loaded and processed for company ID: %s", tenantID),
			"load":    result,
		})
	}
}
