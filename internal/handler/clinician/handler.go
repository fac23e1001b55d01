package clinician

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/httputil"
)

// Handler is a thin CRUD surface over the clinician repository; clinician
// records carry no business rules of their own.
type Handler struct {
	repo repository.ClinicianRepository
}

func NewHandler(repo repository.ClinicianRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinicians := r.Group("/clinicians")
	{
		clinicians.POST("", h.CreateClinician)
		clinicians.GET("", h.ListClinicians)
		clinicians.GET("/:id", h.GetClinician)
	}
}

func (h *Handler) CreateClinician(c *gin.Context) {
	var req model.CreateClinicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	clinician := &model.Clinician{
		Name:      req.Name,
		Email:     req.Email,
		Specialty: req.Specialty,
		Status:    "active",
	}
	if err := h.repo.Create(c.Request.Context(), clinician); err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithCreated(c, clinician)
}

func (h *Handler) GetClinician(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid clinician ID", err))
		return
	}

	clinician, err := h.repo.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondWithError(c, apperrors.NotFound("clinician", err))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, clinician)
}

func (h *Handler) ListClinicians(c *gin.Context) {
	clinicians, err := h.repo.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, clinicians)
}
