package audit

import (
	"time"

	"github.com/google/uuid"
)

// Activity types recorded by the core.
const (
	TypeStatusUpdate  = "STATUS_UPDATE"
	TypeRegistration  = "NEW_REGISTRATION"
	TypeOTPRequested  = "OTP_REQUESTED"
	TypeOfficerLogin  = "OFFICER_LOGIN"
	TypeOfficerStatus = "OFFICER_STATUS_CHANGE"
)

// Event is one append-only activity entry. AdminID is nil for system-
// initiated activity (intake, officer actions).
type Event struct {
	ID          uuid.UUID  `json:"id"`
	AdminID     *uuid.UUID `json:"adminID,omitempty"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
}
