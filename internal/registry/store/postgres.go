package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"regportal/internal/registry/models"
	"regportal/pkg/platform/sentinel"
	txcontext "regportal/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresStore implements Store over lib/pq. Writes issued inside a
// transaction (see PostgresTx) go through the *sql.Tx carried in context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func translatePQ(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w", what, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *PostgresStore) CreateCompany(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (id, name, country, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		company.ID, company.Name, company.Country, company.CreatedAt,
	)
	if err != nil {
		return translatePQ(err, "insert company")
	}
	return nil
}

func (s *PostgresStore) CreateOfficer(ctx context.Context, officer *models.Officer) error {
	query := `
		INSERT INTO officers (id, company_id, full_name, job_title, email, mobile, national_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		officer.ID, officer.CompanyID, officer.FullName, nullIfEmpty(officer.JobTitle),
		officer.Email, officer.Mobile, nullIfEmpty(officer.NationalID),
		officer.IsActive, officer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert officer: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchOfficerLogin(ctx context.Context, officerID uuid.UUID, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE officers SET last_login_at = $2 WHERE id = $1`, officerID, at)
	if err != nil {
		return fmt.Errorf("touch officer login: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("officer not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SetOfficerActive(ctx context.Context, officerID uuid.UUID, active bool) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE officers SET is_active = $2 WHERE id = $1`, officerID, active)
	if err != nil {
		return fmt.Errorf("set officer active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("officer not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// NextSequence reserves the next per-year sequence with an atomic upsert.
// The row-level lock taken by ON CONFLICT DO UPDATE makes concurrent intakes
// in the same year queue on the counter row instead of reading a stale count.
func (s *PostgresStore) NextSequence(ctx context.Context, year int) (int, error) {
	query := `
		INSERT INTO registration_counters (year, seq)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = registration_counters.seq + 1
		RETURNING seq
	`
	var seq int
	if err := s.execer(ctx).QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, company_id, registration_number, status_id, submission_method, remarks, created_at, updated_at, updated_by_admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		app.ID, app.CompanyID, app.RegistrationNumber, int(app.StatusID),
		app.SubmissionMethod, nullIfEmpty(app.Remarks),
		app.CreatedAt, app.UpdatedAt, app.UpdatedByAdminID,
	)
	if err != nil {
		return translatePQ(err, "insert application")
	}
	return nil
}

func (s *PostgresStore) FindApplicationByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := `
		SELECT id, company_id, registration_number, status_id, submission_method,
		       COALESCE(remarks, ''), created_at, updated_at, updated_by_admin_id
		FROM applications
		WHERE id = $1
	`
	return s.scanApplication(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindApplicationDetail(ctx context.Context, id uuid.UUID) (*ApplicationDetail, error) {
	query := `
		SELECT a.id, a.company_id, a.registration_number, a.status_id, a.submission_method,
		       COALESCE(a.remarks, ''), a.created_at, a.updated_at, a.updated_by_admin_id,
		       c.name, c.country,
		       COALESCE(o.full_name, ''), COALESCE(o.email, ''), COALESCE(o.mobile, '')
		FROM applications a
		JOIN companies c ON a.company_id = c.id
		LEFT JOIN LATERAL (
			SELECT full_name, email, mobile
			FROM officers
			WHERE company_id = c.id
			ORDER BY created_at
			LIMIT 1
		) o ON true
		WHERE a.id = $1
	`
	var (
		detail  ApplicationDetail
		app     models.Application
		status  int
		adminID uuid.NullUUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.CompanyID, &app.RegistrationNumber, &status, &app.SubmissionMethod,
		&app.Remarks, &app.CreatedAt, &app.UpdatedAt, &adminID,
		&detail.CompanyName, &detail.Country,
		&detail.OfficerName, &detail.Email, &detail.Mobile,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query application detail: %w", err)
	}
	app.StatusID = models.StatusID(status)
	if adminID.Valid {
		app.UpdatedByAdminID = &adminID.UUID
	}
	detail.Application = app
	return &detail, nil
}

func (s *PostgresStore) FindOfficerContext(ctx context.Context, registrationNumber string) (*OfficerContext, error) {
	query := `
		SELECT o.id, o.full_name, COALESCE(o.job_title, ''), o.email, o.mobile,
		       a.id, a.registration_number, c.id, c.name, a.status_id
		FROM applications a
		JOIN companies c ON a.company_id = c.id
		JOIN officers o ON o.company_id = c.id
		WHERE a.registration_number = $1 AND o.is_active
		ORDER BY o.created_at
		LIMIT 1
	`
	var (
		oc     OfficerContext
		status int
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, registrationNumber).Scan(
		&oc.OfficerID, &oc.OfficerName, &oc.JobTitle, &oc.Email, &oc.Mobile,
		&oc.ApplicationID, &oc.RegistrationNumber, &oc.CompanyID, &oc.CompanyName, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration number not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query officer context: %w", err)
	}
	oc.StatusID = models.StatusID(status)
	return &oc, nil
}

func (s *PostgresStore) UpdateApplicationStatus(ctx context.Context, appID uuid.UUID, statusID models.StatusID, remarks string, adminID uuid.UUID, at time.Time) error {
	query := `
		UPDATE applications
		SET status_id = $2, remarks = $3, updated_at = $4, updated_by_admin_id = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		appID, int(statusID), nullIfEmpty(remarks), at, adminID)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
		INSERT INTO application_status_history (id, application_id, previous_status_id, new_status_id, remarks, updated_at, updated_by_admin_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var prev *int
	if entry.PreviousStatusID != nil {
		p := int(*entry.PreviousStatusID)
		prev = &p
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID, entry.ApplicationID, prev, int(entry.NewStatusID),
		nullIfEmpty(entry.Remarks), entry.UpdatedAt, entry.UpdatedByAdminID,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, appID uuid.UUID) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, application_id, previous_status_id, new_status_id,
		       COALESCE(remarks, ''), updated_at, updated_by_admin_id
		FROM application_status_history
		WHERE application_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			entry models.HistoryEntry
			prev  sql.NullInt64
			next  int
		)
		if err := rows.Scan(&entry.ID, &entry.ApplicationID, &prev, &next,
			&entry.Remarks, &entry.UpdatedAt, &entry.UpdatedByAdminID); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if prev.Valid {
			p := models.StatusID(prev.Int64)
			entry.PreviousStatusID = &p
		}
		entry.NewStatusID = models.StatusID(next)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) scanApplication(row *sql.Row) (*models.Application, error) {
	var (
		app     models.Application
		status  int
		adminID uuid.NullUUID
	)
	err := row.Scan(&app.ID, &app.CompanyID, &app.RegistrationNumber, &status,
		&app.SubmissionMethod, &app.Remarks, &app.CreatedAt, &app.UpdatedAt, &adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.StatusID = models.StatusID(status)
	if adminID.Valid {
		app.UpdatedByAdminID = &adminID.UUID
	}
	return &app, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostgresTx runs fn inside a SQL transaction threaded through context.
type PostgresTx struct {
	db *sql.DB
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
