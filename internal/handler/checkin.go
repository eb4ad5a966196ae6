package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"checkin-companion/internal/models"
)

// Sender delivers a text message to a phone number
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

type Config struct {
	// StaffPhone receives one message per confirmed check-in.
	StaffPhone string
}

// CheckIn describes one confirmed attendance
type CheckIn struct {
	Kind      models.TargetKind
	Title     string
	Name      string
	Email     string
	Attended  int
	Total     int
	CheckedAt time.Time
}

type CheckinHandler struct {
	sender Sender
	config *Config
	log    zerolog.Logger
}

// NewCheckinHandler creates a new check-in notification handler
func NewCheckinHandler(sender Sender, cfg *Config, log zerolog.Logger) *CheckinHandler {
	return &CheckinHandler{
		sender: sender,
		config: cfg,
		log:    log.With().Str("component", "Notifier").Logger(),
	}
}

// Enabled reports whether a staff phone is configured
func (h *CheckinHandler) Enabled() bool {
	return h != nil && h.sender != nil && h.config != nil && strings.TrimSpace(h.config.StaffPhone) != ""
}

// HandleCheckIn notifies staff about a confirmed check-in
func (h *CheckinHandler) HandleCheckIn(ctx context.Context, c CheckIn) error {
	if !h.Enabled() {
		return nil
	}

	if err := h.sender.SendMessage(ctx, h.config.StaffPhone, ConfirmationMessage(c)); err != nil {
		return fmt.Errorf("failed to send check-in notification: %w", err)
	}
	h.log.Debug().Str("email", c.Email).Msg("Check-in notification sent")
	return nil
}

// ConfirmationMessage renders the staff notification for a check-in
func ConfirmationMessage(c CheckIn) string {
	who := c.Name
	if who == "" {
		who = c.Email
	}
	where := c.Title
	if where == "" {
		where = string(c.Kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s checked in to %s", who, where)
	if !c.CheckedAt.IsZero() {
		fmt.Fprintf(&b, " at %s", c.CheckedAt.Format("15:04"))
	}
	if c.Total > 0 {
		fmt.Fprintf(&b, "\n%d/%d attended", c.Attended, c.Total)
	}
	return b.String()
}
