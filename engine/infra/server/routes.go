package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiqhub/aiq/engine/core"
	"github.com/aiqhub/aiq/engine/service"
	"github.com/aiqhub/aiq/pkg/logger"
)

// RegisterRoutes wires the questionnaire API onto the router.
func RegisterRoutes(r *gin.Engine, svc *service.Service) {
	r.POST("/start", startHandler(svc))
	r.GET("/module/:module_id", getModuleHandler(svc))
	r.POST("/submit-answer", submitAnswerHandler(svc))
	r.GET("/result", resultHandler(svc))
	r.GET("/question/:question_id", getQuestionHandler(svc))
	r.GET("/health", healthHandler())
}

func startHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.Start(c.Request.Context(), c.Query("lang"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getModuleHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, err := svc.GetModule(
			c.Request.Context(),
			c.Query("session_id"),
			c.Param("module_id"),
			c.Query("lang"),
		)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"module": module})
	}
}

func submitAnswerHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &service.SubmitRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			respondError(c, core.BadRequest(err.Error()))
			return
		}
		req.Lang = c.Query("lang")
		result, err := svc.SubmitAnswer(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func resultHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := svc.Result(c.Request.Context(), c.Query("session_id"), c.Query("lang"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}

func getQuestionHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		question, err := svc.GetQuestion(c.Request.Context(), c.Param("question_id"), c.Query("lang"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"question": question})
	}
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// respondError renders the error envelope: an HTTP status plus a
// structured detail (string token or reason-keyed object).
func respondError(c *gin.Context, err error) {
	reqErr := core.AsError(err)
	if reqErr.Status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			"status", reqErr.Status,
			"detail", reqErr.Detail,
		)
	}
	c.JSON(reqErr.Status, gin.H{"detail": reqErr.Detail})
}
