package assessments

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"grantflow-backend/internal/documents"
	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches assessment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/programs/:id/assessments", h.assess)
	rg.GET("/programs/:id/assessments", h.list)
	rg.GET("/assessments/:id", h.get)
}

type assessRequest struct {
	DocumentID string `json:"documentId"`
	Criteria   string `json:"criteria"`
}

func (h *Handler) assess(c *gin.Context) {
	programID := c.Param("id")
	c.Set("programId", programID)

	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentId is required", nil)
		return
	}

	assessment, err := h.Svc.AssessDocument(c.Request.Context(), programID, req.DocumentID, req.Criteria)
	if err != nil {
		switch {
		case errors.Is(err, programs.ErrNotFound), errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "program or document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to assess document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, assessment)
}

func (h *Handler) get(c *gin.Context) {
	assessment, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "assessment not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch assessment", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, assessment)
}

func (h *Handler) list(c *gin.Context) {
	programID := c.Param("id")
	c.Set("programId", programID)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	list, err := h.Svc.List(c.Request.Context(), programID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list assessments", nil)
		}
		return
	}
	if list == nil {
		list = []Assessment{}
	}
	respond.JSON(c, http.StatusOK, list)
}
