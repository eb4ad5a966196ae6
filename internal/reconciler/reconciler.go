// Package reconciler replaces the local roster with the server's copy after
// every load, refresh and validation.
package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"checkin-companion/internal/models"
	"checkin-companion/internal/roster"
)

// Fetched is one authoritative roster read
type Fetched struct {
	Payload models.RosterPayload
	// NumericID is the server id of the session or event, if reported.
	NumericID *int64
	Title     string
}

// Source reads the roster of a session or event from the backend
type Source interface {
	Fetch(ctx context.Context, target models.ScanContext) (Fetched, error)
}

// Reconciler is the only writer of a roster.Store snapshot
type Reconciler struct {
	store  *roster.Store
	source Source
	log    zerolog.Logger

	mu     sync.RWMutex
	target models.ScanContext
	title  string
}

// New creates a reconciler writing to store
func New(store *roster.Store, source Source, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		source: source,
		log:    log.With().Str("component", "Reconciler").Logger(),
	}
}

// Apply replaces the roster wholesale. Counts come from the payload lists.
func (r *Reconciler) Apply(payload models.RosterPayload) models.RosterSnapshot {
	snapshot := models.NewRosterSnapshot(payload)
	r.store.Replace(snapshot)
	r.log.Debug().
		Int("attended", snapshot.AttendedCount).
		Int("total", snapshot.TotalCount).
		Msg("Roster replaced")
	return snapshot
}

// Load points the reconciler at target and fetches its roster
func (r *Reconciler) Load(ctx context.Context, target models.ScanContext) (models.RosterSnapshot, error) {
	r.mu.Lock()
	r.target = target
	r.title = ""
	r.mu.Unlock()

	return r.Reload(ctx)
}

// Reload fetches the current target's roster and applies it. When reloads
// overlap, the last response to arrive wins.
func (r *Reconciler) Reload(ctx context.Context) (models.RosterSnapshot, error) {
	target := r.Target()
	if target.TargetID == "" {
		return models.RosterSnapshot{}, fmt.Errorf("no roster target loaded")
	}

	fetched, err := r.source.Fetch(ctx, target)
	if err != nil {
		r.log.Error().Err(err).
			Str("target", string(target.TargetKind)+"/"+target.TargetID).
			Msg("Roster reload failed")
		return models.RosterSnapshot{}, fmt.Errorf("failed to reload roster: %w", err)
	}

	r.mu.Lock()
	if r.target.TargetID == target.TargetID && r.target.TargetKind == target.TargetKind {
		if fetched.NumericID != nil {
			r.target.NumericID = fetched.NumericID
		}
		if fetched.Title != "" {
			r.title = fetched.Title
		}
	}
	r.mu.Unlock()

	return r.Apply(fetched.Payload), nil
}

// Target returns the scan context of the loaded roster
func (r *Reconciler) Target() models.ScanContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.target
}

// Title returns the heading reported by the last reload
func (r *Reconciler) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.title
}
