// Package models holds the registration-portal data model: companies, the
// officers nominated for them, applications with their status, and the
// append-only status history.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusID identifies an entry of the fixed status catalog.
type StatusID int

// The status catalog is fixed; IDs match the seeded StatusMaster rows.
const (
	StatusReceived            StatusID = 1
	StatusPreliminaryReview   StatusID = 2
	StatusNotEligible         StatusID = 3
	StatusCommitteeEvaluation StatusID = 4
	StatusApproved            StatusID = 5
	StatusRejected            StatusID = 6
)

// Status is a row of the status catalog.
type Status struct {
	ID          StatusID
	Name        string
	Description string
}

var statusCatalog = []Status{
	{StatusReceived, "Application Received", "Your application has been received and is awaiting review"},
	{StatusPreliminaryReview, "Under Preliminary Review", "Your application is being reviewed by our team"},
	{StatusNotEligible, "Not Eligible for Registration", "Application does not meet eligibility criteria"},
	{StatusCommitteeEvaluation, "Under Committee Evaluation and Pending Feedback", "Application is under committee evaluation"},
	{StatusApproved, "Approved", "Your application has been approved"},
	{StatusRejected, "Rejected", "Application has been rejected"},
}

var statusByName = func() map[string]Status {
	m := make(map[string]Status, len(statusCatalog))
	for _, s := range statusCatalog {
		m[s.Name] = s
	}
	return m
}()

var statusByID = func() map[StatusID]Status {
	m := make(map[StatusID]Status, len(statusCatalog))
	for _, s := range statusCatalog {
		m[s.ID] = s
	}
	return m
}()

// Statuses returns the catalog in ID order.
func Statuses() []Status {
	out := make([]Status, len(statusCatalog))
	copy(out, statusCatalog)
	return out
}

// StatusByName resolves a status by its exact catalog name.
func StatusByName(name string) (Status, bool) {
	s, ok := statusByName[name]
	return s, ok
}

// StatusName resolves the catalog name for an ID, or "" if unknown.
func StatusName(id StatusID) string {
	if s, ok := statusByID[id]; ok {
		return s.Name
	}
	return ""
}

// allowedTransitions is the explicit transition table. The review workflow is
// intentionally permissive: every status is reachable from every other,
// including re-setting the same status. Restricting the workflow later is a
// data change here, not a code change.
var allowedTransitions = func() map[StatusID]map[StatusID]bool {
	m := make(map[StatusID]map[StatusID]bool, len(statusCatalog))
	for _, from := range statusCatalog {
		m[from.ID] = make(map[StatusID]bool, len(statusCatalog))
		for _, to := range statusCatalog {
			m[from.ID][to.ID] = true
		}
	}
	return m
}()

// CanTransition reports whether the transition table permits from -> to.
func CanTransition(from, to StatusID) bool {
	return allowedTransitions[from][to]
}

// Company is created once at intake and immutable afterwards.
type Company struct {
	ID        uuid.UUID
	Name      string
	Country   string
	CreatedAt time.Time
}

// NormalizeCompanyName is the canonical form used for the uniqueness check:
// surrounding whitespace stripped, case folded.
func NormalizeCompanyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Officer is the nominated contact for a company. At least one is created at
// intake; IsActive is toggled by staff action.
type Officer struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	FullName    string
	JobTitle    string
	Email       string
	Mobile      string
	NationalID  string
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
}

// Application is the registration application itself. One per intake; the
// registration number is assigned inside the intake transaction.
type Application struct {
	ID                 uuid.UUID
	CompanyID          uuid.UUID
	RegistrationNumber string
	StatusID           StatusID
	SubmissionMethod   string
	Remarks            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	UpdatedByAdminID   *uuid.UUID
}

// IsNew marks an intake no administrator has yet acted upon. It flips
// permanently false on the first admin-initiated transition, even one that
// re-sets the status to Received.
func (a *Application) IsNew() bool {
	return a.StatusID == StatusReceived && a.UpdatedByAdminID == nil
}

// HistoryEntry is one append-only row of the status audit trail.
type HistoryEntry struct {
	ID               uuid.UUID
	ApplicationID    uuid.UUID
	PreviousStatusID *StatusID
	NewStatusID      StatusID
	Remarks          string
	UpdatedAt        time.Time
	UpdatedByAdminID uuid.UUID
}

// FormatRegistrationNumber renders PREFIX/COM/REG/<year>/<zero-padded seq>.
func FormatRegistrationNumber(prefix string, year int, seq int) string {
	return fmt.Sprintf("%s/COM/REG/%04d/%04d", prefix, year, seq)
}
