package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/platform/sentinel"
	"regportal/pkg/requestcontext"

	"regportal/internal/audit"
	"regportal/internal/officerauth/store/otp"
	"regportal/internal/outbound"
	"regportal/internal/platform/config"
	"regportal/internal/platform/metrics"
	"regportal/internal/registry/models"
	regstore "regportal/internal/registry/store"
)

// TokenIssuer signs officer session tokens. Satisfied by jwttoken.JWTService.
type TokenIssuer interface {
	GenerateOfficerToken(officerID, applicationID uuid.UUID, registrationNumber, companyName string, expiresIn time.Duration) (string, error)
}

// Service runs the officer OTP login exchange: request issues and dispatches
// a code over two best-effort channels, verify consumes it and mints a
// session token.
type Service struct {
	registry regstore.Store
	codes    otp.Store
	issuer   TokenIssuer
	queue    *outbound.Queue
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	smsLocalPrefix string
}

func New(registry regstore.Store, codes otp.Store, issuer TokenIssuer, queue *outbound.Queue,
	recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger, smsLocalPrefix string) *Service {
	return &Service{
		registry:       registry,
		codes:          codes,
		issuer:         issuer,
		queue:          queue,
		recorder:       recorder,
		metrics:        m,
		logger:         logger,
		smsLocalPrefix: smsLocalPrefix,
	}
}

// OfficerSummary is returned by RequestOTP; it confirms which officer the
// code went to without exposing contact details.
type OfficerSummary struct {
	RegistrationNumber string `json:"registrationNumber"`
	CompanyName        string `json:"companyName"`
	OfficerName        string `json:"officerName"`
}

// Session is the result of a successful verify.
type Session struct {
	Token   string         `json:"token"`
	Officer OfficerProfile `json:"officer"`
}

// OfficerProfile is the officer view embedded in the login response.
type OfficerProfile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	JobTitle           string `json:"jobTitle,omitempty"`
	RegistrationNumber string `json:"registrationNumber"`
	CompanyName        string `json:"companyName"`
	CurrentStatus      string `json:"currentStatus"`
}

// RequestOTP issues a fresh code for the registration number, superseding any
// unconsumed prior code, and dispatches it over SMS (local numbers only) and
// email. Channel failures never fail the request.
func (s *Service) RequestOTP(ctx context.Context, registrationNumber string) (*OfficerSummary, error) {
	registrationNumber = strings.TrimSpace(registrationNumber)
	if registrationNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "registration number is required")
	}

	oc, err := s.registry.FindOfficerContext(ctx, registrationNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invalid registration number or officer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve registration number")
	}

	code, err := generateCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	now := requestcontext.Now(ctx)
	record := otp.Record{
		RegistrationNumber: oc.RegistrationNumber,
		Code:               code,
		ExpiresAt:          now.Add(config.OTPTTL),
		OfficerID:          oc.OfficerID,
		ApplicationID:      oc.ApplicationID,
	}
	if err := s.codes.Put(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}

	// Two independent best-effort channels; the worker owns delivery.
	if strings.HasPrefix(oc.Mobile, s.smsLocalPrefix) {
		s.queue.Enqueue(outbound.Message{
			Channel: outbound.ChannelSMS,
			To:      oc.Mobile,
			Body:    outbound.OTPSMS(code),
		})
	}
	subject, body := outbound.OTPEmail(oc.OfficerName, code, oc.RegistrationNumber)
	s.queue.Enqueue(outbound.Message{
		Channel: outbound.ChannelEmail,
		To:      oc.Email,
		Subject: subject,
		Body:    body,
	})

	s.recorder.Record(ctx, nil, audit.TypeOTPRequested,
		fmt.Sprintf("OTP issued for %s", oc.RegistrationNumber))
	if s.metrics != nil {
		s.metrics.OTPIssued.Inc()
	}
	s.logger.InfoContext(ctx, "otp issued",
		"registration_number", oc.RegistrationNumber,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &OfficerSummary{
		RegistrationNumber: oc.RegistrationNumber,
		CompanyName:        oc.CompanyName,
		OfficerName:        oc.OfficerName,
	}, nil
}

// VerifyOTP consumes a live matching code and returns session claims. The
// failure category is precise (not found / expired / invalid) for client
// messaging; a mismatch leaves the record usable until expiry.
func (s *Service) VerifyOTP(ctx context.Context, registrationNumber, code string) (*Session, error) {
	registrationNumber = strings.TrimSpace(registrationNumber)
	if registrationNumber == "" || code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "registration number and OTP are required")
	}

	now := requestcontext.Now(ctx)
	record, err := s.codes.Consume(ctx, registrationNumber, code, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			s.observeVerify("not_found")
			return nil, dErrors.New(dErrors.CodeBadRequest, "no OTP found or OTP expired")
		case errors.Is(err, sentinel.ErrExpired):
			s.observeVerify("expired")
			return nil, dErrors.New(dErrors.CodeBadRequest, "OTP has expired")
		case errors.Is(err, sentinel.ErrInvalidState):
			s.observeVerify("invalid")
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid OTP")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
		}
	}

	oc, err := s.registry.FindOfficerContext(ctx, registrationNumber)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load officer")
	}

	if err := s.registry.TouchOfficerLogin(ctx, record.OfficerID, now); err != nil {
		// Login stamp is advisory; the session is still valid.
		s.logger.WarnContext(ctx, "failed to stamp officer login",
			"error", err, "officer_id", record.OfficerID.String())
	}

	token, err := s.issuer.GenerateOfficerToken(
		oc.OfficerID, oc.ApplicationID, oc.RegistrationNumber, oc.CompanyName, config.OfficerTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	s.recorder.Record(ctx, nil, audit.TypeOfficerLogin,
		fmt.Sprintf("Officer %s logged in for %s", oc.OfficerName, oc.RegistrationNumber))
	s.observeVerify("ok")
	s.logger.InfoContext(ctx, "officer login",
		"registration_number", oc.RegistrationNumber,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &Session{
		Token: token,
		Officer: OfficerProfile{
			ID:                 oc.OfficerID.String(),
			Name:               oc.OfficerName,
			Email:              oc.Email,
			JobTitle:           oc.JobTitle,
			RegistrationNumber: oc.RegistrationNumber,
			CompanyName:        oc.CompanyName,
			CurrentStatus:      models.StatusName(oc.StatusID),
		},
	}, nil
}

// RunSweeper purges expired codes until ctx is cancelled, bounding the store
// independently of verify traffic.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deleted, err := s.codes.DeleteExpired(ctx, time.Now())
			if err != nil {
				s.logger.Error("otp sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Info("expired otp records removed", "count", deleted)
			}
		}
	}
}

func (s *Service) observeVerify(outcome string) {
	if s.metrics != nil {
		s.metrics.OTPVerified.WithLabelValues(outcome).Inc()
	}
}

// generateCode draws a 6-digit numeric code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
