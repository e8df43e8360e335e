package audit

import (
	"net/http"
	"time"

	"buyback_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the admin reporting endpoints over the state log.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/state-log/:appointmentId", h.ListByAppointment)
	rg.GET("/report", h.Report)
}

func (h *Handler) ListByAppointment(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id", nil)
		return
	}

	logs, err := h.repo.ListByAppointment(c.Request.Context(), appointmentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, logs)
}

func (h *Handler) Report(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid from timestamp", nil)
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid to timestamp", nil)
			return
		}
		to = parsed
	}

	counts, err := h.repo.Report(c.Request.Context(), from, to)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"from": from, "to": to, "transitions": counts})
}
