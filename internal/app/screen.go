package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"checkin-companion/internal/gate"
	"checkin-companion/internal/handler"
	"checkin-companion/internal/models"
	"checkin-companion/internal/reconciler"
	"checkin-companion/internal/roster"
	"checkin-companion/internal/storage"
)

const sideEffectTimeout = 10 * time.Second

// Screen is an open session or event roster with its scanner
type Screen struct {
	app   *App
	store *roster.Store
	rec   *reconciler.Reconciler
	gate  *gate.Gate
	log   zerolog.Logger
}

func (a *App) open(ctx context.Context, target models.ScanContext) (*Screen, error) {
	log := a.log.With().
		Str("target", string(target.TargetKind)+"/"+target.TargetID).
		Logger()

	s := &Screen{
		app:   a,
		store: roster.NewStore(),
		log:   log,
	}
	s.rec = reconciler.New(s.store, &apiSource{client: a.client, locale: a.opts.Locale}, log)
	s.gate = gate.New(&apiValidator{client: a.client}, screenReloader{s}, a.opts.Navigator, log, gate.Options{
		Dwell:     a.opts.Dwell,
		Timeout:   a.opts.Timeout,
		AfterFunc: a.opts.AfterFunc,
		OnState:   a.opts.OnState,
		OnResult:  s.onResult,
	})

	if _, err := s.rec.Load(ctx, target); err != nil {
		return nil, a.guard(err)
	}
	log.Info().Str("title", s.Title()).Msg("Roster opened")
	return s, nil
}

// Target returns the scan context of the roster
func (s *Screen) Target() models.ScanContext {
	return s.rec.Target()
}

// Title returns the roster heading
func (s *Screen) Title() string {
	return s.rec.Title()
}

// Refresh reloads the roster from the backend
func (s *Screen) Refresh(ctx context.Context) (models.RosterSnapshot, error) {
	snapshot, err := s.rec.Reload(ctx)
	if err != nil {
		return models.RosterSnapshot{}, s.app.guard(err)
	}
	return snapshot, nil
}

// screenReloader is the gate's roster reload. A rejected token closes the
// scanner and stops the app like any other roster call.
type screenReloader struct {
	s *Screen
}

func (r screenReloader) Reload(ctx context.Context) (models.RosterSnapshot, error) {
	snapshot, err := r.s.rec.Reload(ctx)
	if err == nil {
		return snapshot, nil
	}
	err = r.s.app.guard(err)
	if errors.Is(err, ErrAccessDenied) {
		r.s.gate.Close()
	}
	return models.RosterSnapshot{}, err
}

// Search applies a name filter and returns the visible participants
func (s *Screen) Search(query string) []models.Participant {
	s.store.Filter(query)
	return s.store.View()
}

// Participants returns the visible participants in render order
func (s *Screen) Participants() []models.Participant {
	return s.store.View()
}

// Stats returns the attended and total counts
func (s *Screen) Stats() (attended, total int) {
	snapshot := s.store.Snapshot()
	return snapshot.AttendedCount, snapshot.TotalCount
}

// Store exposes the roster store, for profile screens that patch it
func (s *Screen) Store() *roster.Store {
	return s.store
}

// OpenScanner starts scanning. It reports false while an outcome is pending.
func (s *Screen) OpenScanner() bool {
	return s.gate.StartScan()
}

// Scan feeds one decoded QR payload to the scanner
func (s *Screen) Scan(raw string) bool {
	return s.gate.OnPayload(raw, s.rec.Target())
}

// CloseScanner leaves the scanner. Pending responses are discarded.
func (s *Screen) CloseScanner() {
	s.gate.Close()
}

// State returns the scanner state
func (s *Screen) State() gate.State {
	return s.gate.State()
}

// Current returns the outcome being presented, if any
func (s *Screen) Current() (gate.Result, bool) {
	return s.gate.Current()
}

// Wait blocks until in-flight validations have been handled
func (s *Screen) Wait() {
	s.gate.Wait()
}

// Close leaves the screen and drops its roster
func (s *Screen) Close() {
	s.gate.Close()
	s.store.Clear()
}

// BackPath is where leaving the roster navigates
func (s *Screen) BackPath() string {
	return models.HomePath
}

// OpenProfile opens a participant from this roster. On session rosters the
// profile's visited flag patches the roster in place; event attendance is
// tracked apart from it and waits for the next reload.
func (s *Screen) OpenProfile(ctx context.Context, id int64) (*ProfileScreen, error) {
	target := s.rec.Target()
	var store *roster.Store
	if target.TargetKind == models.TargetSession {
		store = s.store
	}
	return s.app.openProfile(ctx, id, target, store)
}

func (s *Screen) onResult(res gate.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if journal := s.app.opts.Journal; journal != nil {
		err := journal.Record(ctx, storage.Entry{
			ScanID:     res.ScanID,
			TargetKind: res.Target.TargetKind,
			TargetID:   res.Target.TargetID,
			Email:      res.Email,
			Outcome:    res.Outcome,
			Message:    res.Message,
			CreatedAt:  res.At,
		})
		if err != nil {
			s.log.Error().Err(err).Str("scan_id", res.ScanID).Msg("Failed to journal scan")
		}
	}

	if res.Outcome == models.OutcomeMatched && s.app.opts.Notifier.Enabled() {
		attended, total := s.Stats()
		checkIn := handler.CheckIn{
			Kind:      res.Target.TargetKind,
			Title:     s.Title(),
			Email:     res.Email,
			Attended:  attended,
			Total:     total,
			CheckedAt: res.At,
		}
		if p, ok := s.store.FindByEmail(res.Email); ok {
			checkIn.Name = p.FullName
		}
		if err := s.app.opts.Notifier.HandleCheckIn(ctx, checkIn); err != nil {
			s.log.Error().Err(err).Str("scan_id", res.ScanID).Msg("Failed to notify staff")
		}
	}

	if s.app.opts.OnResult != nil {
		s.app.opts.OnResult(res)
	}
}
