package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"regportal/internal/registry/models"
	"regportal/pkg/platform/sentinel"
)

// InMemoryStore keeps the full data model in process memory for tests/dev.
type InMemoryStore struct {
	mu           sync.RWMutex
	companies    map[uuid.UUID]*models.Company
	companyNames map[string]uuid.UUID
	officers     map[uuid.UUID]*models.Officer
	applications map[uuid.UUID]*models.Application
	regNumbers   map[string]uuid.UUID
	history      map[uuid.UUID][]models.HistoryEntry
	sequences    map[int]int
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		companies:    make(map[uuid.UUID]*models.Company),
		companyNames: make(map[string]uuid.UUID),
		officers:     make(map[uuid.UUID]*models.Officer),
		applications: make(map[uuid.UUID]*models.Application),
		regNumbers:   make(map[string]uuid.UUID),
		history:      make(map[uuid.UUID][]models.HistoryEntry),
		sequences:    make(map[int]int),
	}
}

func (s *InMemoryStore) CreateCompany(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeCompanyName(company.Name)
	if _, exists := s.companyNames[key]; exists {
		return fmt.Errorf("company name %q: %w", company.Name, sentinel.ErrConflict)
	}
	cp := *company
	s.companies[company.ID] = &cp
	s.companyNames[key] = company.ID
	return nil
}

func (s *InMemoryStore) CreateOfficer(_ context.Context, officer *models.Officer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *officer
	s.officers[officer.ID] = &cp
	return nil
}

func (s *InMemoryStore) TouchOfficerLogin(_ context.Context, officerID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	officer, ok := s.officers[officerID]
	if !ok {
		return fmt.Errorf("officer not found: %w", sentinel.ErrNotFound)
	}
	officer.LastLoginAt = &at
	return nil
}

func (s *InMemoryStore) SetOfficerActive(_ context.Context, officerID uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	officer, ok := s.officers[officerID]
	if !ok {
		return fmt.Errorf("officer not found: %w", sentinel.ErrNotFound)
	}
	officer.IsActive = active
	return nil
}

func (s *InMemoryStore) NextSequence(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[year]++
	return s.sequences[year], nil
}

func (s *InMemoryStore) CreateApplication(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.regNumbers[app.RegistrationNumber]; exists {
		return fmt.Errorf("registration number %q: %w", app.RegistrationNumber, sentinel.ErrConflict)
	}
	cp := *app
	s.applications[app.ID] = &cp
	s.regNumbers[app.RegistrationNumber] = app.ID
	return nil
}

func (s *InMemoryStore) FindApplicationByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	cp := *app
	return &cp, nil
}

func (s *InMemoryStore) FindApplicationDetail(_ context.Context, id uuid.UUID) (*ApplicationDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	detail := &ApplicationDetail{Application: *app}
	if company, ok := s.companies[app.CompanyID]; ok {
		detail.CompanyName = company.Name
		detail.Country = company.Country
	}
	if officer := s.officerForCompany(app.CompanyID); officer != nil {
		detail.OfficerName = officer.FullName
		detail.Email = officer.Email
		detail.Mobile = officer.Mobile
	}
	return detail, nil
}

func (s *InMemoryStore) FindOfficerContext(_ context.Context, registrationNumber string) (*OfficerContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appID, ok := s.regNumbers[registrationNumber]
	if !ok {
		return nil, fmt.Errorf("registration number not found: %w", sentinel.ErrNotFound)
	}
	app := s.applications[appID]
	officer := s.officerForCompany(app.CompanyID)
	if officer == nil || !officer.IsActive {
		return nil, fmt.Errorf("no active officer: %w", sentinel.ErrNotFound)
	}
	company := s.companies[app.CompanyID]
	return &OfficerContext{
		OfficerID:          officer.ID,
		OfficerName:        officer.FullName,
		JobTitle:           officer.JobTitle,
		Email:              officer.Email,
		Mobile:             officer.Mobile,
		ApplicationID:      app.ID,
		RegistrationNumber: app.RegistrationNumber,
		CompanyID:          company.ID,
		CompanyName:        company.Name,
		StatusID:           app.StatusID,
	}, nil
}

func (s *InMemoryStore) UpdateApplicationStatus(_ context.Context, appID uuid.UUID, statusID models.StatusID, remarks string, adminID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[appID]
	if !ok {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	app.StatusID = statusID
	app.Remarks = remarks
	app.UpdatedAt = at
	admin := adminID
	app.UpdatedByAdminID = &admin
	return nil
}

func (s *InMemoryStore) AppendHistory(_ context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.ApplicationID] = append(s.history[entry.ApplicationID], *entry)
	return nil
}

func (s *InMemoryStore) ListHistory(_ context.Context, appID uuid.UUID) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]models.HistoryEntry, len(s.history[appID]))
	copy(entries, s.history[appID])
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (s *InMemoryStore) officerForCompany(companyID uuid.UUID) *models.Officer {
	var found *models.Officer
	for _, officer := range s.officers {
		if officer.CompanyID != companyID {
			continue
		}
		// Deterministic pick when a company has several officers.
		if found == nil || officer.CreatedAt.Before(found.CreatedAt) {
			found = officer
		}
	}
	return found
}

// InMemoryTx serializes transactions on a single mutex. Writes inside fn are
// not rolled back on failure; services order conflict-prone writes first so a
// failed intake leaves no observable partial state.
type InMemoryTx struct {
	mu sync.Mutex
}

func NewInMemoryTx() *InMemoryTx {
	return &InMemoryTx{}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
