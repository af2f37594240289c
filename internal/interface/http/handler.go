package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/allergy-risk/internal/domain/environment"
	"github.com/yanqian/allergy-risk/internal/domain/prediction"
)

const serviceName = "allergy-risk"

// Handler wires the HTTP transport to domain services.
type Handler struct {
	predictionSvc  prediction.Service
	environmentSvc environment.Service
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(predictionSvc prediction.Service, environmentSvc environment.Service, logger *slog.Logger) *Handler {
	return &Handler{
		predictionSvc:  predictionSvc,
		environmentSvc: environmentSvc,
		logger:         logger.With("component", "http.handler"),
	}
}

// PredictRisk scores a user's allergy risk from profile, food log and environment.
func (h *Handler) PredictRisk(c *gin.Context) {
	var req prediction.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.predictionSvc.Predict(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "prediction": resp})
}

// UpdateModel retrains the classifier on labelled samples.
func (h *Handler) UpdateModel(c *gin.Context) {
	var req prediction.RetrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.predictionSvc.Retrain(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "metrics": resp.Metrics, "message": resp.Message})
}

// AssessEnvironment returns the rule-based environmental risk for a snapshot or location.
func (h *Handler) AssessEnvironment(c *gin.Context) {
	if h.environmentSvc == nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, "environment_unavailable", "environment service is not configured", nil))
		return
	}
	var req environment.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.environmentSvc.Assess(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": resp.Assessment, "environmental_data": resp.Environment})
}

// ModelStatus describes the artifact currently serving predictions.
func (h *Handler) ModelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.predictionSvc.ModelStatus(c.Request.Context()))
}

// Health reports liveness and whether a model is installed.
func (h *Handler) Health(c *gin.Context) {
	status := h.predictionSvc.ModelStatus(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      serviceName,
		"model_loaded": status.Loaded,
	})
}
