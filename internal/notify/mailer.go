package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"

	"github.com/mkmtelecom/outagemon/internal/event"
	"github.com/mkmtelecom/outagemon/internal/report"
)

// Mailer sends one transactional email per completed outage through the
// Brevo API, with a per-target cooldown and an hourly rate limit.
type Mailer struct {
	settings Settings
	client   *brevo.APIClient
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	sent     []time.Time
}

// NewMailer builds a mailer from settings. Call Enabled on the settings
// first; a mailer built from incomplete settings refuses to send.
func NewMailer(settings Settings) *Mailer {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", settings.APIKey)
	return &Mailer{
		settings: settings,
		client:   brevo.NewAPIClient(cfg),
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// SetNow overrides the clock source. Intended for tests.
func (m *Mailer) SetNow(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// NotifyOutage emails a completed outage. Suppressed sends (cooldown or rate
// limit) return nil.
func (m *Mailer) NotifyOutage(ctx context.Context, ev event.Outage) error {
	if !m.settings.Enabled() {
		return nil
	}
	if !m.mayNotify(ev.Target) {
		return nil
	}

	body := fmt.Sprintf(
		"Outage recovered\n\nTarget: %s\nDown at: %s\nBack at: %s\nTime offline: %s\n",
		ev.Target,
		ev.Start.Time().Format("2006-01-02 15:04:05"),
		ev.End.Time().Format("2006-01-02 15:04:05"),
		report.FormatDuration(ev.DurationS),
	)

	to := make([]brevo.SendSmtpEmailTo, 0, len(m.settings.Recipients))
	for _, addr := range m.settings.Recipients {
		to = append(to, brevo.SendSmtpEmailTo{Email: addr})
	}

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  m.settings.SenderName,
			Email: m.settings.SenderEmail,
		},
		To:          to,
		Subject:     fmt.Sprintf("outagemon: %s was down for %s", ev.Target, report.FormatDuration(ev.DurationS)),
		TextContent: body,
	}

	if _, _, err := m.client.TransactionalEmailsApi.SendTransacEmail(ctx, email); err != nil {
		return fmt.Errorf("send outage email: %w", err)
	}
	m.recordSend(ev.Target)
	return nil
}

// mayNotify checks cooldown and rate limit without consuming a slot. Only a
// delivered email counts against either.
func (m *Mailer) mayNotify(target string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	cooldown := time.Duration(m.settings.CooldownMinutes) * time.Minute
	if last, ok := m.lastSent[target]; ok && now.Sub(last) < cooldown {
		return false
	}

	m.pruneLocked(now)
	return len(m.sent) < m.settings.MaxPerHour
}

// recordSend marks a delivered email for cooldown and rate accounting.
func (m *Mailer) recordSend(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)
	m.lastSent[target] = now
	m.sent = append(m.sent, now)
}

// pruneLocked drops sends older than the rate-limit window. Caller holds mu.
func (m *Mailer) pruneLocked(now time.Time) {
	oneHourAgo := now.Add(-time.Hour)
	recent := m.sent[:0]
	for _, t := range m.sent {
		if t.After(oneHourAgo) {
			recent = append(recent, t)
		}
	}
	m.sent = recent
}
