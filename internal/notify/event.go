package notify

import "time"

// Channel names. AdminChannel is joined explicitly by connected staff
// sessions; the global channel is unscoped and always fires.
const (
	AdminChannel = "admin-room"
)

// Event type names on the wire. Clients key off these.
const (
	EventNewApplication        = "new_application"
	EventNewRegistration       = "new-registration"
	EventStatusChanged         = "application_status_changed"
	EventNewRegistrationGlobal = "new-registration-global"
)

// Event is the transient real-time notification payload. The server keeps no
// backlog; clients mirroring the global channel persist intake events for
// admins who were offline at emission time.
type Event struct {
	Type               string    `json:"type"`
	ApplicationID      string    `json:"applicationID,omitempty"`
	RegistrationNumber string    `json:"registrationNumber"`
	CompanyName        string    `json:"companyName"`
	Country            string    `json:"country,omitempty"`
	OfficerName        string    `json:"officerName,omitempty"`
	OfficerEmail       string    `json:"officerEmail,omitempty"`
	OfficerPhone       string    `json:"officerPhone,omitempty"`
	PreviousStatus     string    `json:"previousStatus,omitempty"`
	NewStatus          string    `json:"newStatus,omitempty"`
	Message            string    `json:"message,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}
