package appointment

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
	"github.com/jwalitptl/scheduler-api/pkg/lock"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.POST("/recurring", h.CreateRecurringSeries)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/complete", h.CompleteAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.CreateAppointment(c.Request.Context(), &req)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("appointment", err))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{
		Status: model.AppointmentStatus(c.Query("status")),
		Date:   c.Query("date"),
	}
	if id := c.Query("clinician_id"); id != "" {
		clinicianID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid clinician ID", err))
			return
		}
		filters.ClinicianID = clinicianID
	}
	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid patient ID", err))
			return
		}
		filters.PatientID = patientID
	}
	if id := c.Query("series_id"); id != "" {
		seriesID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid series ID", err))
			return
		}
		filters.SeriesID = seriesID
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.UpdateAppointment(c.Request.Context(), id, &req)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("appointment", err))
		return
	}
	if err != nil {
		respondBookingError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	// A reason is optional; an empty body is fine, a malformed one is not.
	var req model.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
	}

	apt, err := h.service.CancelAppointment(c.Request.Context(), id, req.Reason)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("appointment", err))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unprocessable(err.Error(), err))
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.CompleteAppointment(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("appointment", err))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unprocessable(err.Error(), err))
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) CreateRecurringSeries(c *gin.Context) {
	var req model.CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	result, err := h.service.CreateRecurringSeries(c.Request.Context(), &req)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	httputil.RespondWithCreated(c, result)
}

// respondBookingError translates booking rejections into HTTP semantics:
// collisions are 409 with the colliding appointments attached, availability
// rejections are 422, lock contention is a retryable 409.
func respondBookingError(c *gin.Context, err error) {
	var conflictErr *appointment.ConflictError
	if errors.As(err, &conflictErr) {
		httputil.RespondWithErrorDetails(c,
			apperrors.Conflict(conflictErr.Error(), nil), conflictErr.Conflicts)
		return
	}

	var unavailableErr *appointment.UnavailableError
	if errors.As(err, &unavailableErr) {
		httputil.RespondWithError(c, apperrors.Unprocessable(unavailableErr.Reason, nil))
		return
	}

	if errors.Is(err, appointment.ErrClinicianNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("clinician", err))
		return
	}

	if errors.Is(err, lock.ErrLockNotAcquired) {
		httputil.RespondWithError(c,
			apperrors.Conflict("another booking for this clinician is in progress, try again", err))
		return
	}

	httputil.RespondWithError(c, apperrors.Internal(err))
}
