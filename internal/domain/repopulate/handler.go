package repopulate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/repopulate/internal/platform/auth"
	"github.com/ehr/repopulate/internal/platform/fhir"
	"github.com/ehr/repopulate/pkg/pagination"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/repopulate", auth.RequireRole("admin", "clinician", "viewer"))
	read.GET("/sessions", h.ListSessions)
	read.GET("/sessions/:id", h.GetSession)
	read.GET("/sessions/:id/changes", h.GetChanges)

	write := api.Group("/repopulate", auth.RequireRole("admin", "clinician"))
	write.POST("/sessions", h.CreateSession)
	write.DELETE("/sessions/:id", h.DeleteSession)
	write.POST("/sessions/:id/toggle", h.Toggle)
	write.POST("/sessions/:id/select-all", h.SelectAll)
	write.POST("/sessions/:id/unselect-all", h.UnselectAll)
	write.POST("/sessions/:id/commit", h.Commit)
}

type createSessionRequest struct {
	Questionnaire   json.RawMessage `json:"questionnaire" validate:"required"`
	CurrentResponse json.RawMessage `json:"currentResponse"`
	ServerResponse  json.RawMessage `json:"serverResponse" validate:"required"`
}

type toggleRequest struct {
	Heading *int `json:"heading" validate:"required,min=0"`
	Parent  *int `json:"parent" validate:"required,min=0"`
	Child   *int `json:"child" validate:"omitempty,min=0"`
}

// -- Sessions --

func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}

	q, err := fhir.ParseQuestionnaire(req.Questionnaire)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	server, err := fhir.ParseQuestionnaireResponse(req.ServerResponse)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("serverResponse: "+err.Error()))
	}
	var current *fhir.QuestionnaireResponse
	if len(req.CurrentResponse) > 0 && string(req.CurrentResponse) != "null" {
		current, err = fhir.ParseQuestionnaireResponse(req.CurrentResponse)
		if err != nil {
			return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("currentResponse: "+err.Error()))
		}
	}

	sess, rec, err := h.svc.Create(c.Request().Context(), CreateSessionInput{
		Questionnaire: q,
		Current:       current,
		Server:        server,
		CreatedBy:     auth.UserIDFromContext(c.Request().Context()),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sess.Summary(rec))
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return sessionError(c, id, err)
	}
	return c.JSON(http.StatusOK, sess.Summary(rec))
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path))
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return sessionError(c, id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetChanges(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	view, err := h.svc.Changes(c.Request().Context(), id)
	if err != nil {
		return sessionError(c, id, err)
	}
	return c.JSON(http.StatusOK, view)
}

// -- Selection --

func (h *Handler) Toggle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := h.svc.Toggle(c.Request().Context(), id, *req.Heading, *req.Parent, req.Child)
	if err != nil {
		return sessionError(c, id, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) SelectAll(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	view, err := h.svc.SelectAll(c.Request().Context(), id)
	if err != nil {
		return sessionError(c, id, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) UnselectAll(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	view, err := h.svc.UnselectAll(c.Request().Context(), id)
	if err != nil {
		return sessionError(c, id, err)
	}
	return c.JSON(http.StatusOK, view)
}

// -- Commit --

func (h *Handler) Commit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	merged, err := h.svc.Commit(c.Request().Context(), id)
	if err != nil {
		return sessionError(c, id, err)
	}
	return c.JSON(http.StatusOK, merged)
}

func sessionError(c echo.Context, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("RepopulateSession", id.String()))
	case errors.Is(err, ErrNothingSelected):
		return c.JSON(http.StatusConflict, fhir.NewOperationOutcome("warning", "business-rule", err.Error()))
	case errors.Is(err, ErrSessionClosed):
		return c.JSON(http.StatusConflict, fhir.NewOperationOutcome("error", "conflict", err.Error()))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
