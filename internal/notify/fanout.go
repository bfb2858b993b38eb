package notify

import (
	"context"
	"log/slog"
	"time"

	"regportal/internal/platform/metrics"
	"regportal/internal/registry/models"
	"regportal/internal/registry/store"
)

// Fanout turns domain changes into real-time events. It runs strictly after
// the triggering transaction commits and never reports failure to callers.
type Fanout struct {
	registry Registry
	global   GlobalPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewFanout(registry Registry, global GlobalPublisher, m *metrics.Metrics, logger *slog.Logger) *Fanout {
	return &Fanout{registry: registry, global: global, metrics: m, logger: logger}
}

// PublishIntake announces a freshly committed intake: once to the admin
// channel for connected sessions, and once on the global path which always
// fires so clients can persist the event for offline admins.
func (f *Fanout) PublishIntake(ctx context.Context, app *models.Application, company *models.Company, officer *models.Officer) {
	base := Event{
		ApplicationID:      app.ID.String(),
		RegistrationNumber: app.RegistrationNumber,
		CompanyName:        company.Name,
		Country:            company.Country,
		OfficerName:        officer.FullName,
		OfficerEmail:       officer.Email,
		OfficerPhone:       officer.Mobile,
		Timestamp:          time.Now().UTC(),
	}

	roomEvent := base
	roomEvent.Type = EventNewRegistration
	delivered := f.registry.Broadcast(AdminChannel, roomEvent)

	dashboardEvent := base
	dashboardEvent.Type = EventNewApplication
	delivered += f.registry.Broadcast(AdminChannel, dashboardEvent)

	globalEvent := base
	globalEvent.Type = EventNewRegistrationGlobal
	f.registry.BroadcastGlobal(globalEvent)
	if f.global != nil {
		if err := f.global.PublishGlobal(ctx, globalEvent); err != nil {
			f.logger.Error("global publish failed", "error", err,
				"registration_number", app.RegistrationNumber)
		}
	}

	f.observe(delivered)
	f.logger.Info("intake notification emitted",
		"registration_number", app.RegistrationNumber,
		"admins_online", delivered,
	)
}

// PublishStatusChange announces a committed status transition to connected
// admin sessions. No global mirror: only intake events feed the offline path.
func (f *Fanout) PublishStatusChange(detail *store.ApplicationDetail, previous, next models.StatusID) {
	event := Event{
		Type:               EventStatusChanged,
		ApplicationID:      detail.Application.ID.String(),
		RegistrationNumber: detail.Application.RegistrationNumber,
		CompanyName:        detail.CompanyName,
		PreviousStatus:     models.StatusName(previous),
		NewStatus:          models.StatusName(next),
		Message:            "Application " + detail.Application.RegistrationNumber + " status changed to " + models.StatusName(next),
		Timestamp:          time.Now().UTC(),
	}
	delivered := f.registry.Broadcast(AdminChannel, event)
	f.observe(delivered)
	f.logger.Info("status notification emitted",
		"registration_number", detail.Application.RegistrationNumber,
		"new_status", models.StatusName(next),
		"admins_online", delivered,
	)
}

func (f *Fanout) observe(delivered int) {
	if f.metrics != nil {
		f.metrics.FanoutDeliveries.Add(float64(delivered))
	}
}
