package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"regportal/internal/registry/models"
)

// Error Contract:
// All store methods follow this pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return sentinel.ErrConflict (wrapped) when a uniqueness invariant is violated
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// OfficerContext is the joined view resolved for OTP issuance and officer
// session claims: the active officer for a registration number together with
// the application and company it belongs to.
type OfficerContext struct {
	OfficerID          uuid.UUID
	OfficerName        string
	JobTitle           string
	Email              string
	Mobile             string
	ApplicationID      uuid.UUID
	RegistrationNumber string
	CompanyID          uuid.UUID
	CompanyName        string
	StatusID           models.StatusID
}

// ApplicationDetail is the joined view returned to admin and officer reads.
type ApplicationDetail struct {
	Application models.Application
	CompanyName string
	Country     string
	OfficerName string
	Email       string
	Mobile      string
}

// Store is the relational collaborator for the portal core. Postgres is the
// production implementation; the in-memory variant backs unit tests and dev.
type Store interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	CreateOfficer(ctx context.Context, officer *models.Officer) error
	TouchOfficerLogin(ctx context.Context, officerID uuid.UUID, at time.Time) error

	// SetOfficerActive toggles whether the officer can start the OTP login
	// flow. Inactive officers are skipped by FindOfficerContext.
	SetOfficerActive(ctx context.Context, officerID uuid.UUID, active bool) error

	// NextSequence atomically reserves the next per-year registration
	// sequence. Called inside the intake transaction so a failed intake
	// at most leaves a gap, never a duplicate.
	NextSequence(ctx context.Context, year int) (int, error)

	CreateApplication(ctx context.Context, app *models.Application) error
	FindApplicationByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	FindApplicationDetail(ctx context.Context, id uuid.UUID) (*ApplicationDetail, error)
	FindOfficerContext(ctx context.Context, registrationNumber string) (*OfficerContext, error)
	UpdateApplicationStatus(ctx context.Context, appID uuid.UUID, statusID models.StatusID, remarks string, adminID uuid.UUID, at time.Time) error

	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, appID uuid.UUID) ([]models.HistoryEntry, error)
}

// Tx runs fn atomically: every store write inside fn commits or rolls back as
// one unit. The Postgres implementation opens a SQL transaction and threads
// it through context; the in-memory implementation serializes on a mutex.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
