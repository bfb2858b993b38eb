package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"regportal/internal/intake/service"
	"regportal/internal/transport/http/shared"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/requestcontext"
)

// Service defines the intake operation the handler delegates to.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*service.Receipt, error)
}

// Handler exposes the public registration endpoint. It is unauthenticated:
// applicants have no credentials before intake succeeds.
type Handler struct {
	intake Service
	logger *slog.Logger
}

func New(intake Service, logger *slog.Logger) *Handler {
	return &Handler{intake: intake, logger: logger}
}

// Register mounts the intake route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registration/submit", h.handleSubmit)
}

// submitRequest mirrors the frontend payload: company details and the
// nominated compliance officer in one document.
type submitRequest struct {
	Company struct {
		CompanyName string `json:"companyName"`
		Country     string `json:"country"`
	} `json:"company"`
	Nomination struct {
		FullName    string `json:"fullName"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		Designation string `json:"designation"`
		NationalID  string `json:"nationalID"`
	} `json:"nomination"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid intake request body",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	receipt, err := h.intake.Submit(ctx, service.SubmitRequest{
		CompanyName: req.Company.CompanyName,
		Country:     req.Company.Country,
		OfficerName: req.Nomination.FullName,
		Email:       req.Nomination.Email,
		Phone:       req.Nomination.Phone,
		Designation: req.Nomination.Designation,
		NationalID:  req.Nomination.NationalID,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeConflict) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "intake failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to submit registration"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":            "Registration submitted successfully",
		"registrationNumber": receipt.RegistrationNumber,
		"companyName":        receipt.CompanyName,
		"applicationID":      receipt.ApplicationID,
	})
}
