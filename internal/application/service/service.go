package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/platform/sentinel"
	"regportal/pkg/requestcontext"

	"regportal/internal/audit"
	"regportal/internal/notify"
	"regportal/internal/outbound"
	"regportal/internal/platform/metrics"
	"regportal/internal/registry/models"
	"regportal/internal/registry/store"
)

// Service is the application status state machine. Every executed transition
// persists the status change and its history row atomically, then emits
// exactly one fanout event and one officer-facing message attempt.
type Service struct {
	store    store.Store
	tx       store.Tx
	fanout   *notify.Fanout
	queue    *outbound.Queue
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(st store.Store, tx store.Tx, fanout *notify.Fanout, queue *outbound.Queue,
	recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		tx:       tx,
		fanout:   fanout,
		queue:    queue,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
	}
}

// View is the admin/officer read model for one application.
type View struct {
	ApplicationID      uuid.UUID `json:"applicationID"`
	RegistrationNumber string    `json:"registrationNumber"`
	CompanyName        string    `json:"companyName"`
	Country            string    `json:"country"`
	OfficerName        string    `json:"officerName,omitempty"`
	CurrentStatus      string    `json:"currentStatus"`
	Remarks            string    `json:"remarks,omitempty"`
	IsNew              bool      `json:"isNew"`
	CreatedAt          string    `json:"createdAt"`
	UpdatedAt          string    `json:"updatedAt"`
}

// HistoryRow is one audit-trail entry in read form.
type HistoryRow struct {
	PreviousStatus string `json:"previousStatus,omitempty"`
	NewStatus      string `json:"newStatus"`
	Remarks        string `json:"remarks,omitempty"`
	UpdatedAt      string `json:"updatedAt"`
	UpdatedBy      string `json:"updatedBy"`
}

// Transition moves an application to the named status on behalf of an
// administrator. The transition table is permissive today; the check still
// runs so restricting the workflow later is a data change.
func (s *Service) Transition(ctx context.Context, appID uuid.UUID, newStatusName, remarks string, adminID uuid.UUID) error {
	if newStatusName == "" {
		return dErrors.New(dErrors.CodeValidation, "new status is required")
	}
	if adminID == uuid.Nil {
		return dErrors.New(dErrors.CodeUnauthorized, "admin identity required")
	}

	newStatus, ok := models.StatusByName(newStatusName)
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "invalid status name")
	}

	now := requestcontext.Now(ctx)
	var (
		detail   *store.ApplicationDetail
		previous models.StatusID
	)

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		detail, err = s.store.FindApplicationDetail(txCtx, appID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
		}
		previous = detail.Application.StatusID

		if !models.CanTransition(previous, newStatus.ID) {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("transition %s -> %s not permitted", models.StatusName(previous), newStatus.Name))
		}

		if err := s.store.UpdateApplicationStatus(txCtx, appID, newStatus.ID, remarks, adminID, now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update status")
		}

		// History is a mandatory post-condition of every transition,
		// including same-status ones.
		prev := previous
		entry := &models.HistoryEntry{
			ID:               uuid.New(),
			ApplicationID:    appID,
			PreviousStatusID: &prev,
			NewStatusID:      newStatus.ID,
			Remarks:          remarks,
			UpdatedAt:        now,
			UpdatedByAdminID: adminID,
		}
		if err := s.store.AppendHistory(txCtx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append history")
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Committed. Post-commit effects are fire-and-forget.
	s.fanout.PublishStatusChange(detail, previous, newStatus.ID)

	if detail.Email != "" {
		subject, body := outbound.StatusUpdateEmail(
			detail.OfficerName, detail.CompanyName, newStatus.Name, remarks)
		s.queue.Enqueue(outbound.Message{
			Channel: outbound.ChannelEmail,
			To:      detail.Email,
			Subject: subject,
			Body:    body,
		})
	}

	admin := adminID
	s.recorder.Record(ctx, &admin, audit.TypeStatusUpdate,
		fmt.Sprintf("Updated application %s status from %s to %s",
			detail.Application.RegistrationNumber, models.StatusName(previous), newStatus.Name))
	if s.metrics != nil {
		s.metrics.StatusTransitions.Inc()
	}
	s.logger.InfoContext(ctx, "status transition committed",
		"registration_number", detail.Application.RegistrationNumber,
		"previous_status", models.StatusName(previous),
		"new_status", newStatus.Name,
		"admin_id", adminID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// SetOfficerActive toggles whether an officer can start the OTP login flow.
// Deactivation takes effect on the next issuance; live sessions are
// untouched.
func (s *Service) SetOfficerActive(ctx context.Context, officerID uuid.UUID, active bool, adminID uuid.UUID) error {
	if adminID == uuid.Nil {
		return dErrors.New(dErrors.CodeUnauthorized, "admin identity required")
	}

	if err := s.store.SetOfficerActive(ctx, officerID, active); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "officer not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update officer")
	}

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}
	admin := adminID
	s.recorder.Record(ctx, &admin, audit.TypeOfficerStatus,
		fmt.Sprintf("%s officer %s", verb, officerID))
	s.logger.InfoContext(ctx, "officer active flag updated",
		"officer_id", officerID.String(),
		"active", active,
		"admin_id", adminID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Get returns the read model for one application, including the derived
// unseen-intake flag.
func (s *Service) Get(ctx context.Context, appID uuid.UUID) (*View, error) {
	detail, err := s.store.FindApplicationDetail(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return viewFromDetail(detail), nil
}

// History lists the audit trail, newest first.
func (s *Service) History(ctx context.Context, appID uuid.UUID) ([]HistoryRow, error) {
	if _, err := s.store.FindApplicationByID(ctx, appID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	entries, err := s.store.ListHistory(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	rows := make([]HistoryRow, 0, len(entries))
	for _, entry := range entries {
		row := HistoryRow{
			NewStatus: models.StatusName(entry.NewStatusID),
			Remarks:   entry.Remarks,
			UpdatedAt: entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			UpdatedBy: entry.UpdatedByAdminID.String(),
		}
		if entry.PreviousStatusID != nil {
			row.PreviousStatus = models.StatusName(*entry.PreviousStatusID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func viewFromDetail(detail *store.ApplicationDetail) *View {
	app := detail.Application
	return &View{
		ApplicationID:      app.ID,
		RegistrationNumber: app.RegistrationNumber,
		CompanyName:        detail.CompanyName,
		Country:            detail.Country,
		OfficerName:        detail.OfficerName,
		CurrentStatus:      models.StatusName(app.StatusID),
		Remarks:            app.Remarks,
		IsNew:              app.IsNew(),
		CreatedAt:          app.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:          app.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
