package schedule

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	appointmentsvc "github.com/jwalitptl/scheduler-api/internal/service/appointment"
	schedulesvc "github.com/jwalitptl/scheduler-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
)

type Handler struct {
	schedules    *schedulesvc.Service
	appointments *appointmentsvc.Service
}

func NewHandler(schedules *schedulesvc.Service, appointments *appointmentsvc.Service) *Handler {
	return &Handler{schedules: schedules, appointments: appointments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinicians := r.Group("/clinicians")
	{
		clinicians.GET("/:id/schedule", h.GetSchedule)
		clinicians.PUT("/:id/schedule", h.UpdateSchedule)
		clinicians.GET("/:id/availability", h.GetAvailability)
	}
}

func (h *Handler) GetSchedule(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid clinician ID", err))
		return
	}

	schedule, err := h.schedules.GetSchedule(c.Request.Context(), clinicianID)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("schedule", err))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, schedule)
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid clinician ID", err))
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	schedule, err := h.schedules.UpdateSchedule(c.Request.Context(), clinicianID, req.Schedule)
	if err != nil {
		// Structural validation failures and occupied-slot refusals both
		// surface as 422 with the service's explanation.
		httputil.RespondWithError(c, apperrors.Unprocessable(err.Error(), err))
		return
	}
	httputil.RespondWithSuccess(c, schedule)
}

// GetAvailability evaluates a candidate time when start_time is supplied,
// otherwise returns the day schedule governing the date.
func (h *Handler) GetAvailability(c *gin.Context) {
	clinicianID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid clinician ID", err))
		return
	}

	var q model.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if q.StartTime == "" {
		day, ok, err := h.appointments.ResolveDay(c.Request.Context(), clinicianID, q.Date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Internal(err))
			return
		}
		httputil.RespondWithSuccess(c, gin.H{
			"date":      q.Date,
			"available": ok && day.Enabled,
			"schedule":  day,
		})
		return
	}

	result, err := h.appointments.CheckAvailability(c.Request.Context(), clinicianID, &q)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	httputil.RespondWithSuccess(c, result)
}
