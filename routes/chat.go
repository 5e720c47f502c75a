package routes

import (
	"bytes"
	"fmt"
	"net/http"

	"docchat-service/middleware"
	"docchat-service/models"
	"docchat-service/services"
	"docchat-service/utils"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func SetupChatRoutes(router *gin.Engine, deps Deps, chatMiddleware ...gin.HandlerFunc) {
	chat := append(append([]gin.HandlerFunc{}, chatMiddleware...), handleChat(deps))
	router.POST("/chat", chat...)
	router.GET("/analytics/:company_id", handleAnalytics(deps))
	router.GET("/history/:company_id", handleHistory(deps))
}

func handleChat(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		middleware.SetTenant(c, req.CompanyID)

		ctx, cancel := utils.WithChatTimeout(c.Request.Context())
		defer cancel()

		result, err := deps.Sessions.Chat(ctx, req.CompanyID, req.Message)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Response: result.Answer,
			Sources:  result.Sources,
		})
	}
}

func handleAnalytics(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := deps.Sessions.Analytics(c.Param("company_id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.AnalyticsResponse{RequestCount: count})
	}
}

func handleHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("company_id")
		turns, err := deps.Sessions.History(tenantID)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		if c.Query("format") == "xlsx" {
			var buf bytes.Buffer
			if err := services.WriteHistoryWorkbook(&buf, tenantID, turns); err != nil {
				utils.RespondWithInternalError(c, "Failed to export history", nil)
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-history.xlsx"`, tenantID))
			c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
			return
		}
		c.JSON(http.StatusOK, gin.H{"turns": turns})
	}
}
