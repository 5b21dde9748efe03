package jobs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/shared/server/respond"
	"grantflow-backend/internal/shared/storage/cache"
	"grantflow-backend/internal/shared/telemetry"
)

const statusCacheTTL = 2 * time.Second

// Handler exposes the processing trigger and the polling status surface.
type Handler struct {
	Orchestrator *Orchestrator
	ProgramRepo  programs.Repo
	Cache        cache.Cache
	limiter      *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(orchestrator *Orchestrator, programRepo programs.Repo, statusCache cache.Cache) *Handler {
	return &Handler{
		Orchestrator: orchestrator,
		ProgramRepo:  programRepo,
		Cache:        statusCache,
		limiter:      newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/programs/:id/process", h.process)
	rg.GET("/programs/:id/status", h.status)
	rg.GET("/programs/:id/jobs", h.list)
}

type statusResponse struct {
	ProgramID   string             `json:"programId"`
	Status      string             `json:"status"`
	Percent     int                `json:"percent"`
	CurrentTask string             `json:"currentTask"`
	Jobs        []Job              `json:"jobs"`
	Warnings    []programs.Warning `json:"warnings"`
}

func (h *Handler) process(c *gin.Context) {
	programID := c.Param("id")
	c.Set("programId", programID)

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	job, created, err := h.Orchestrator.Start(ctx, programID)
	if err != nil {
		switch {
		case errors.Is(err, programs.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "program not found", nil)
		case errors.Is(err, ErrNoDocuments):
			respond.Error(c, http.StatusBadRequest, "validation_error", "program has no documents to process", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start processing", nil)
		}
		return
	}

	if h.Cache != nil {
		if err := h.Cache.Delete(c.Request.Context(), cache.StatusKey(programID)); err != nil {
			telemetry.Warn("status.cache_delete", map[string]any{
				"program_id": programID,
				"error":      sanitizeError(err),
			})
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	respond.JSON(c, status, gin.H{
		"jobId":   job.ID,
		"kind":    job.Kind,
		"status":  job.Status,
		"created": created,
	})
}

func (h *Handler) status(c *gin.Context) {
	programID := c.Param("id")
	c.Set("programId", programID)

	if !h.limiter.Allow(programID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too fast", nil)
		return
	}

	if h.Cache != nil {
		if payload, ok, err := h.Cache.Get(c.Request.Context(), cache.StatusKey(programID)); err == nil && ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
	}

	resp, err := h.buildStatus(c, programID)
	if err != nil {
		switch {
		case errors.Is(err, programs.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "program not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch status", nil)
		}
		return
	}

	if h.Cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := h.Cache.Set(c.Request.Context(), cache.StatusKey(programID), payload, statusCacheTTL); err != nil {
				telemetry.Warn("status.cache_set", map[string]any{
					"program_id": programID,
					"error":      sanitizeError(err),
				})
			}
		}
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) buildStatus(c *gin.Context, programID string) (statusResponse, error) {
	ctx := c.Request.Context()

	program, err := h.ProgramRepo.GetByID(ctx, programID)
	if err != nil {
		return statusResponse{}, err
	}
	jobList, err := h.Orchestrator.Repo.ListByProgram(ctx, programID)
	if err != nil {
		return statusResponse{}, err
	}

	progress := ComputeProgress(jobList, len(program.Warnings) > 0)
	if jobList == nil {
		jobList = []Job{}
	}
	warnings := program.Warnings
	if warnings == nil {
		warnings = []programs.Warning{}
	}

	return statusResponse{
		ProgramID:   programID,
		Status:      progress.Status,
		Percent:     progress.Percent,
		CurrentTask: progress.CurrentTask,
		Jobs:        jobList,
		Warnings:    warnings,
	}, nil
}

func (h *Handler) list(c *gin.Context) {
	programID := c.Param("id")
	c.Set("programId", programID)

	jobList, err := h.Orchestrator.Repo.ListByProgram(c.Request.Context(), programID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list jobs", nil)
		return
	}
	if jobList == nil {
		jobList = []Job{}
	}
	respond.JSON(c, http.StatusOK, jobList)
}
