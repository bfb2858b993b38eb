package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"regportal/internal/application/service"
	"regportal/internal/audit"
	"regportal/internal/platform/middleware"
	"regportal/internal/transport/http/shared"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/requestcontext"
)

// Service defines the state machine operations the admin surface needs.
type Service interface {
	Transition(ctx context.Context, appID uuid.UUID, newStatusName, remarks string, adminID uuid.UUID) error
	Get(ctx context.Context, appID uuid.UUID) (*service.View, error)
	History(ctx context.Context, appID uuid.UUID) ([]service.HistoryRow, error)
	SetOfficerActive(ctx context.Context, officerID uuid.UUID, active bool, adminID uuid.UUID) error
}

// Handler exposes the admin application surface: status transitions, detail
// and history reads, and the recent-activity feed.
type Handler struct {
	apps       Service
	activity   audit.Store
	adminToken string
	logger     *slog.Logger
}

func New(apps Service, activity audit.Store, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{apps: apps, activity: activity, adminToken: adminToken, logger: logger}
}

const defaultActivityLimit = 50

// Register mounts the admin routes behind the staff token check.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.adminToken, h.logger))
		r.Put("/applications/{appID}/status", h.handleTransition)
		r.Get("/applications/{appID}", h.handleGet)
		r.Get("/applications/{appID}/history", h.handleHistory)
		r.Put("/officers/{officerID}/active", h.handleOfficerActive)
		r.Get("/activity", h.handleActivity)
	})
}

type transitionRequest struct {
	NewStatus string `json:"newStatus"`
	Remarks   string `json:"remarks"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, ok := h.pathAppID(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	adminID := requestcontext.AdminID(ctx)
	if err := h.apps.Transition(ctx, appID, req.NewStatus, req.Remarks, adminID); err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeNotFound,
			dErrors.CodeInvariantViolation, dErrors.CodeUnauthorized:
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "status transition failed",
				"error", err.Error(),
				"application_id", appID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to update status"))
		}
		return
	}

	view, err := h.apps.Get(ctx, appID)
	if err != nil {
		// The transition committed; reply without the refreshed view.
		shared.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Status updated successfully",
		})
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "Status updated successfully",
		"application": view,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.pathAppID(w, r)
	if !ok {
		return
	}
	view, err := h.apps.Get(r.Context(), appID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.pathAppID(w, r)
	if !ok {
		return
	}
	rows, err := h.apps.History(r.Context(), appID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"history": rows})
}

type officerActiveRequest struct {
	// Pointer so a missing field is distinguishable from false.
	IsActive *bool `json:"isActive"`
}

func (h *Handler) handleOfficerActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	officerID, err := uuid.Parse(chi.URLParam(r, "officerID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid officer id"))
		return
	}

	var req officerActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "isActive is required"))
		return
	}

	if err := h.apps.SetOfficerActive(ctx, officerID, *req.IsActive, requestcontext.AdminID(ctx)); err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeNotFound, dErrors.CodeUnauthorized:
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "officer update failed",
				"error", err.Error(),
				"officer_id", officerID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to update officer"))
		}
		return
	}

	verb := "deactivated"
	if *req.IsActive {
		verb = "activated"
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Officer " + verb + " successfully",
	})
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := h.activity.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "activity read failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load activity"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"activity": events})
}

func (h *Handler) pathAppID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	appID, err := uuid.Parse(chi.URLParam(r, "appID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return uuid.Nil, false
	}
	return appID, true
}

func (h *Handler) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		shared.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(r.Context(), "application read failed",
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load application"))
}
