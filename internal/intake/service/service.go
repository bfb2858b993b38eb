package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

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

var tracer = otel.Tracer("regportal/intake")

// SubmitRequest carries the intake payload after transport decoding.
type SubmitRequest struct {
	CompanyName string
	Country     string
	OfficerName string
	Email       string
	Phone       string
	Designation string
	NationalID  string
}

// Receipt confirms a committed intake.
type Receipt struct {
	RegistrationNumber string    `json:"registrationNumber"`
	CompanyName        string    `json:"companyName"`
	ApplicationID      uuid.UUID `json:"applicationID"`
}

// Service owns transactional intake: company, officer and application are
// created as one atomic unit with the registration number allocated inside
// the same transaction. Post-commit effects (fanout, confirmation email,
// activity entry) never affect the result.
type Service struct {
	store    store.Store
	tx       store.Tx
	fanout   *notify.Fanout
	queue    *outbound.Queue
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	prefix   string
}

func New(st store.Store, tx store.Tx, fanout *notify.Fanout, queue *outbound.Queue,
	recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger, prefix string) *Service {
	return &Service{
		store:    st,
		tx:       tx,
		fanout:   fanout,
		queue:    queue,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		prefix:   prefix,
	}
}

// Submit validates and commits one intake, then triggers its post-commit
// notifications.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Receipt, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "intake.submit",
		trace.WithAttributes(attribute.String("company", req.CompanyName)))
	defer span.End()

	now := requestcontext.Now(ctx)
	year := now.UTC().Year()

	company := &models.Company{
		ID:        uuid.New(),
		Name:      req.CompanyName,
		Country:   req.Country,
		CreatedAt: now,
	}
	officer := &models.Officer{
		ID:         uuid.New(),
		CompanyID:  company.ID,
		FullName:   req.OfficerName,
		JobTitle:   req.Designation,
		Email:      strings.ToLower(req.Email),
		Mobile:     req.Phone,
		NationalID: req.NationalID,
		IsActive:   true,
		CreatedAt:  now,
	}
	app := &models.Application{
		ID:               uuid.New(),
		CompanyID:        company.ID,
		StatusID:         models.StatusReceived,
		SubmissionMethod: "Online Portal",
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateCompany(txCtx, company); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "company with this name already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create company")
		}
		if err := s.store.CreateOfficer(txCtx, officer); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create officer")
		}

		seq, err := s.store.NextSequence(txCtx, year)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate registration number")
		}
		app.RegistrationNumber = models.FormatRegistrationNumber(s.prefix, year, seq)

		if err := s.store.CreateApplication(txCtx, app); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "registration number already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Committed. Everything below is fire-and-forget.
	s.fanout.PublishIntake(ctx, app, company, officer)

	subject, body := outbound.RegistrationConfirmation(
		officer.FullName, app.RegistrationNumber, company.Name)
	s.queue.Enqueue(outbound.Message{
		Channel: outbound.ChannelEmail,
		To:      officer.Email,
		Subject: subject,
		Body:    body,
	})

	s.recorder.Record(ctx, nil, audit.TypeRegistration,
		fmt.Sprintf("Application %s submitted for %s", app.RegistrationNumber, company.Name))
	if s.metrics != nil {
		s.metrics.RegistrationsSubmitted.Inc()
	}
	s.logger.InfoContext(ctx, "intake committed",
		"registration_number", app.RegistrationNumber,
		"company", company.Name,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &Receipt{
		RegistrationNumber: app.RegistrationNumber,
		CompanyName:        company.Name,
		ApplicationID:      app.ID,
	}, nil
}

func validate(req *SubmitRequest) error {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Country = strings.TrimSpace(req.Country)
	req.OfficerName = strings.TrimSpace(req.OfficerName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Designation = strings.TrimSpace(req.Designation)
	req.NationalID = strings.TrimSpace(req.NationalID)

	if req.CompanyName == "" || req.Country == "" {
		return dErrors.New(dErrors.CodeValidation, "company name and country are required")
	}
	if req.OfficerName == "" || req.Email == "" || req.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "officer details are required")
	}
	return nil
}
