// Package app ties the roster screens, scanner and profile screen to the
// backend client, the scan journal and staff notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"checkin-companion/internal/api"
	"checkin-companion/internal/gate"
	"checkin-companion/internal/handler"
	"checkin-companion/internal/models"
	"checkin-companion/internal/storage"
)

// ErrAccessDenied is returned when the backend rejects the API token
var ErrAccessDenied = errors.New("access denied")

// Options configure an App
type Options struct {
	ImageURL string
	Locale   language.Tag
	Dwell    time.Duration
	Timeout  time.Duration

	// AfterFunc schedules the outcome dwell. Defaults to the runtime timer.
	AfterFunc gate.AfterFunc
	Navigator gate.Navigator

	// Journal and Notifier are optional.
	Journal  *storage.Journal
	Notifier *handler.CheckinHandler

	OnAccessDenied func()
	OnState        func(gate.State)
	OnResult       func(gate.Result)
}

// App is the application state shared by every screen
type App struct {
	client *api.Client
	opts   Options
	log    zerolog.Logger

	mu       sync.RWMutex
	sessions []models.InfoSession
	events   []models.Event
}

// New creates an App talking to client
func New(client *api.Client, log zerolog.Logger, opts Options) *App {
	if opts.Timeout <= 0 {
		opts.Timeout = api.DefaultTimeout
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	return &App{
		client: client,
		opts:   opts,
		log:    log.With().Str("component", "App").Logger(),
	}
}

// Refresh reloads the home lists. Sessions and events load concurrently and
// the first failure cancels the other request.
func (a *App) Refresh(ctx context.Context) error {
	var sessions []models.InfoSession
	var events []models.Event

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = a.client.ListInfoSessions(gctx)
		if err != nil {
			return fmt.Errorf("failed to load info sessions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = a.client.ListEvents(gctx)
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return a.guard(err)
	}

	a.mu.Lock()
	a.sessions = sessions
	a.events = events
	a.mu.Unlock()

	a.log.Info().Int("sessions", len(sessions)).Int("events", len(events)).Msg("Home loaded")
	return nil
}

// InfoSessions returns the sessions from the last refresh
func (a *App) InfoSessions() []models.InfoSession {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.InfoSession(nil), a.sessions...)
}

// Events returns the events from the last refresh
func (a *App) Events() []models.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Event(nil), a.events...)
}

// Locale returns the language used for event titles
func (a *App) Locale() language.Tag {
	return a.opts.Locale
}

// OpenSession loads the roster of an info session
func (a *App) OpenSession(ctx context.Context, id string) (*Screen, error) {
	return a.open(ctx, models.ScanContext{TargetID: id, TargetKind: models.TargetSession})
}

// OpenEvent loads the roster of an event
func (a *App) OpenEvent(ctx context.Context, id string) (*Screen, error) {
	return a.open(ctx, models.ScanContext{TargetID: id, TargetKind: models.TargetEvent})
}

// History returns the most recent journal entries
func (a *App) History(ctx context.Context, limit int) ([]storage.Entry, error) {
	if a.opts.Journal == nil {
		return nil, nil
	}
	return a.opts.Journal.Recent(ctx, limit)
}

// ParticipantImageURL returns the photo URL of p, or "" without a photo
func (a *App) ParticipantImageURL(p models.Participant) string {
	return ParticipantImageURL(a.opts.ImageURL, p.Image)
}

// EventCoverURL returns the cover URL of e, or "" without a cover
func (a *App) EventCoverURL(e models.Event) string {
	return EventCoverURL(a.opts.ImageURL, e.Cover)
}

// guard turns a 401 into ErrAccessDenied and fires the access denied hook.
func (a *App) guard(err error) error {
	if err == nil || !errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	a.log.Warn().Err(err).Msg("Access denied by backend")
	if a.opts.OnAccessDenied != nil {
		a.opts.OnAccessDenied()
	}
	return fmt.Errorf("%w: %w", ErrAccessDenied, err)
}
