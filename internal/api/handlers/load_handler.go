package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/internal/models"
	"github.com/desokroshan/truckflow-ai/internal/repositories"
	"github.com/desokroshan/truckflow-ai/internal/services"
	"github.com/desokroshan/truckflow-ai/internal/tracing"
)

// LoadHandler handles load request HTTP requests
type LoadHandler struct {
	service *services.DispatchService
	tracer  tracing.Tracer
}

// NewLoadHandler creates a new load handler
func NewLoadHandler(service *services.DispatchService, tracer tracing.Tracer) *LoadHandler {
	return &LoadHandler{
		service: service,
		tracer:  tracer,
	}
}

// ListLoadRequests returns all load requests, newest first
func (h *LoadHandler) ListLoadRequests(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-load-requests")
	defer h.tracer.EndTransaction(txn)

	loads, err := h.service.ListLoadRequests(c)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list load requests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch load requests"})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, loads)
}

// GetLoadRequest returns one load request by id
func (h *LoadHandler) GetLoadRequest(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-load-request")
	defer h.tracer.EndTransaction(txn)

	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid load request id"})
		return
	}
	h.tracer.AddAttribute(txn, "load_request_id", id)

	load, err := h.service.GetLoadRequest(c, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Load request not found"})
			return
		}
		log.Error().Err(err).Uint("id", id).Msg("Failed to get load request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch load request"})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, load)
}

// ApproveLoadRequest approves a pending load request
func (h *LoadHandler) ApproveLoadRequest(c *gin.Context) {
	h.decide(c, models.StatusApproved, "Load request approved successfully")
}

// RejectLoadRequest rejects a pending load request
func (h *LoadHandler) RejectLoadRequest(c *gin.Context) {
	h.decide(c, models.StatusRejected, "Load request rejected")
}

func (h *LoadHandler) decide(c *gin.Context, status, message string) {
	txn := h.tracer.StartTransaction("api-decide-load-request")
	defer h.tracer.EndTransaction(txn)

	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid load request id"})
		return
	}
	h.tracer.AddAttribute(txn, "load_request_id", id)
	h.tracer.AddAttribute(txn, "status", status)

	load, err := h.service.Decide(c, id, status)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Load request not found"})
			return
		}
		log.Error().Err(err).Uint("id", id).Str("status", status).Msg("Failed to decide load request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update load request"})
		h.tracer.RecordError(txn, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "loadRequest": load})
}

// RegisterRoutes registers the handler's routes
func (h *LoadHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/load-requests", h.ListLoadRequests)
	api.GET("/load-requests/:id", h.GetLoadRequest)
	api.POST("/load-requests/:id/approve", h.ApproveLoadRequest)
	api.POST("/load-requests/:id/reject", h.RejectLoadRequest)
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "invalid id")
	}
	return uint(id), nil
}
