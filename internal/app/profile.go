package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"checkin-companion/internal/models"
	"checkin-companion/internal/roster"
)

// ProfileScreen shows one participant and offers manual check-in
type ProfileScreen struct {
	app   *App
	id    int64
	from  models.ScanContext
	store *roster.Store
	log   zerolog.Logger

	mu      sync.RWMutex
	profile *models.Profile
}

// OpenProfile opens a participant profile reached from the given roster
// context. from may be empty when the profile is opened directly.
func (a *App) OpenProfile(ctx context.Context, id int64, from models.ScanContext) (*ProfileScreen, error) {
	return a.openProfile(ctx, id, from, nil)
}

func (a *App) openProfile(ctx context.Context, id int64, from models.ScanContext, store *roster.Store) (*ProfileScreen, error) {
	p := &ProfileScreen{
		app:   a,
		id:    id,
		from:  from,
		store: store,
		log:   a.log.With().Int64("participant_id", id).Logger(),
	}
	if _, err := p.Load(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Load fetches the profile from the backend
func (p *ProfileScreen) Load(ctx context.Context) (*models.Profile, error) {
	profile, err := p.app.client.GetProfile(ctx, strconv.FormatInt(p.id, 10))
	if err != nil {
		return nil, p.app.guard(fmt.Errorf("failed to load profile: %w", err))
	}
	p.set(profile)
	return profile, nil
}

// Profile returns the last loaded profile
func (p *ProfileScreen) Profile() models.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return models.Profile{}
	}
	return *p.profile
}

// ImageURL returns the participant photo URL, or "" without a photo
func (p *ProfileScreen) ImageURL() string {
	return p.app.ParticipantImageURL(p.Profile().Participant)
}

// ManualCheckIn marks the participant visited. The profile is reloaded only
// when the backend reports status 200; the reported status is returned.
func (p *ProfileScreen) ManualCheckIn(ctx context.Context) (int, error) {
	status, err := p.app.client.ManualCheckIn(ctx, strconv.FormatInt(p.id, 10))
	if err != nil {
		return 0, p.app.guard(fmt.Errorf("failed to check in: %w", err))
	}
	if status != http.StatusOK {
		p.log.Warn().Int("status", status).Msg("Manual check-in not confirmed")
		return status, nil
	}
	p.log.Info().Msg("Manual check-in confirmed")

	if _, err := p.Load(ctx); err != nil {
		return status, err
	}
	return status, nil
}

// UploadPhoto replaces the participant photo
func (p *ProfileScreen) UploadPhoto(ctx context.Context, fileName string, photo io.Reader) (*models.Profile, error) {
	profile, err := p.app.client.UploadPhoto(ctx, p.id, fileName, photo)
	if err != nil {
		return nil, p.app.guard(fmt.Errorf("failed to upload photo: %w", err))
	}
	p.set(profile)
	p.log.Info().Str("image", profile.Image).Msg("Photo uploaded")
	return profile, nil
}

// BackPath returns the roster the profile was opened from, or home
func (p *ProfileScreen) BackPath() string {
	switch {
	case p.from.TargetID == "":
		return models.HomePath
	case p.from.TargetKind == models.TargetEvent:
		return models.EventPath(p.from.TargetID)
	default:
		return models.SessionPath(p.from.TargetID)
	}
}

func (p *ProfileScreen) set(profile *models.Profile) {
	p.mu.Lock()
	p.profile = profile
	p.mu.Unlock()

	if p.store != nil && p.store.Patch(profile.Participant) {
		p.log.Debug().Msg("Roster patched from profile")
	}
}
