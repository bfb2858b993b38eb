package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appservice "regportal/internal/application/service"
	"regportal/internal/officerauth/service"
	"regportal/internal/platform/middleware"
	"regportal/internal/transport/http/shared"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/requestcontext"
)

// Service defines the OTP exchange operations.
type Service interface {
	RequestOTP(ctx context.Context, registrationNumber string) (*service.OfficerSummary, error)
	VerifyOTP(ctx context.Context, registrationNumber, code string) (*service.Session, error)
}

// ApplicationReader is the read side officers get after login, scoped to the
// application bound into their session token.
type ApplicationReader interface {
	Get(ctx context.Context, appID uuid.UUID) (*appservice.View, error)
	History(ctx context.Context, appID uuid.UUID) ([]appservice.HistoryRow, error)
}

// Handler exposes officer login and the officer's own application view.
type Handler struct {
	auth      Service
	apps      ApplicationReader
	validator middleware.OfficerTokenValidator
	logger    *slog.Logger
}

func New(auth Service, apps ApplicationReader, validator middleware.OfficerTokenValidator, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, apps: apps, validator: validator, logger: logger}
}

// Register mounts the officer routes. The OTP exchange is public; the
// application view requires a session token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/officers", func(r chi.Router) {
		r.Post("/request-otp", h.handleRequestOTP)
		r.Post("/verify-otp", h.handleVerifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOfficer(h.validator, h.logger))
			r.Get("/application", h.handleApplication)
			r.Get("/application/history", h.handleHistory)
		})
	})
}

type otpRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
	OTP                string `json:"otp,omitempty"`
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	summary, err := h.auth.RequestOTP(ctx, req.RegistrationNumber)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "otp request failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue OTP"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "OTP sent to the registered contact details",
		"officer": summary,
	})
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	session, err := h.auth.VerifyOTP(ctx, req.RegistrationNumber, req.OTP)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) ||
			dErrors.HasCode(err, dErrors.CodeBadRequest) ||
			dErrors.HasCode(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "otp verification failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to verify OTP"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) handleApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID := requestcontext.ApplicationID(ctx)
	if appID == uuid.Nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}

	view, err := h.apps.Get(ctx, appID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID := requestcontext.ApplicationID(ctx)
	if appID == uuid.Nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return
	}

	rows, err := h.apps.History(ctx, appID)
	if err != nil {
		h.writeReadError(w, r, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"history": rows})
}

func (h *Handler) writeReadError(w http.ResponseWriter, r *http.Request, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		shared.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(r.Context(), "officer application read failed",
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load application"))
}
