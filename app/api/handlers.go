package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/ingest"
)

// NewHandler serves the run API. Triggered runs use ctx so they stop with
// the server.
func NewHandler(ctx context.Context, runner Runner, sourceCount int, version string) *Handler {
	return &Handler{
		ctx:         ctx,
		runner:      runner,
		sourceCount: sourceCount,
		version:     version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"sources":   h.sourceCount,
		"running":   h.runner.Running(),
	}

	if last := h.runner.LastRun(); last != nil {
		health["last_run"] = map[string]interface{}{
			"id":          last.ID,
			"result":      last.Result,
			"finished_at": last.FinishedAt,
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIGetLastRun(c *gin.Context) {
	last := h.runner.LastRun()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run has finished yet"})
		return
	}

	c.JSON(http.StatusOK, last)
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if err := h.runner.Trigger(h.ctx); err != nil {
		if errors.Is(err, ingest.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		slog.Warn("Failed to trigger run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
