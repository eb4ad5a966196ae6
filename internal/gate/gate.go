// Package gate owns the scan lifecycle: at most one validation is in flight,
// every outcome is shown for a fixed dwell, and responses from a scanner
// session the user already left are discarded.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"checkin-companion/internal/api"
	"checkin-companion/internal/models"
	"checkin-companion/internal/payload"
	"checkin-companion/internal/presenter"
)

// DefaultDwell is how long an outcome stays on screen
const DefaultDwell = 1500 * time.Millisecond

// invalidMessage is recorded for payloads rejected before any request
const invalidMessage = "Not found"

// State is the scanner lifecycle state
type State int

const (
	Idle State = iota
	Scanning
	Submitting
	Presenting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Submitting:
		return "submitting"
	case Presenting:
		return "presenting"
	default:
		return "unknown"
	}
}

// Validator submits a credential to the backend
type Validator interface {
	Validate(ctx context.Context, target models.ScanContext, cred models.InvitationCredential) (*api.ValidationResponse, error)
}

// Reloader refreshes the roster after a validation response
type Reloader interface {
	Reload(ctx context.Context) (models.RosterSnapshot, error)
}

// Navigator receives navigation intents
type Navigator interface {
	Navigate(path string)
}

// Timer is the handle of a scheduled dwell
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through RealAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc schedules with the runtime timer
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Result is one presented scan outcome
type Result struct {
	ScanID    string
	Target    models.ScanContext
	Email     string
	Outcome   models.Outcome
	Message   string
	ProfileID *int64
	Display   presenter.Display
	At        time.Time
}

// Options tune a Gate. Zero values fall back to defaults.
type Options struct {
	Dwell     time.Duration
	Timeout   time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
	// OnState is called after every state change.
	OnState func(State)
	// OnResult is called when an outcome starts presenting.
	OnResult func(Result)
}

// Gate is the scan state machine of one roster screen
type Gate struct {
	validator Validator
	reloader  Reloader
	navigator Navigator
	log       zerolog.Logger

	dwell     time.Duration
	timeout   time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	onState   func(State)
	onResult  func(Result)

	mu      sync.Mutex
	state   State
	token   uint64
	timer   Timer
	current *Result

	wg sync.WaitGroup
}

// New creates a gate in the Idle state
func New(validator Validator, reloader Reloader, navigator Navigator, log zerolog.Logger, opts Options) *Gate {
	g := &Gate{
		validator: validator,
		reloader:  reloader,
		navigator: navigator,
		log:       log.With().Str("component", "Gate").Logger(),
		dwell:     opts.Dwell,
		timeout:   opts.Timeout,
		afterFunc: opts.AfterFunc,
		now:       opts.Now,
		onState:   opts.OnState,
		onResult:  opts.OnResult,
	}
	if g.dwell <= 0 {
		g.dwell = DefaultDwell
	}
	if g.timeout <= 0 {
		g.timeout = api.DefaultTimeout
	}
	if g.afterFunc == nil {
		g.afterFunc = RealAfterFunc
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// State returns the current state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns the outcome being presented, if any
func (g *Gate) Current() (Result, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil || g.state != Presenting {
		return Result{}, false
	}
	return *g.current, true
}

// StartScan opens the scanner. It is a no-op while a validation is
// submitting or an outcome is presenting.
func (g *Gate) StartScan() bool {
	g.mu.Lock()
	switch g.state {
	case Idle:
		g.state = Scanning
	case Scanning:
		g.mu.Unlock()
		return true
	default:
		g.mu.Unlock()
		return false
	}
	g.mu.Unlock()

	g.emitState(Scanning)
	return true
}

// Close leaves the scanner immediately. An outstanding validation keeps
// running but its response is discarded when it arrives.
func (g *Gate) Close() {
	g.mu.Lock()
	g.token++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.current = nil
	prev := g.state
	g.state = Idle
	g.mu.Unlock()

	if prev != Idle {
		g.log.Debug().Str("from", prev.String()).Msg("Scanner closed")
		g.emitState(Idle)
	}
}

// OnPayload handles one decoded QR payload. It returns false when the payload
// was dropped because the scanner is not waiting for a code.
func (g *Gate) OnPayload(raw string, target models.ScanContext) bool {
	g.mu.Lock()
	if g.state != Scanning {
		state := g.state
		g.mu.Unlock()
		g.log.Debug().Str("state", state.String()).Msg("Payload dropped")
		return false
	}

	scanID := uuid.NewString()
	token := g.token
	cred, err := payload.Parse(raw)
	if err != nil {
		res := Result{
			ScanID:  scanID,
			Target:  target,
			Outcome: models.OutcomeInvalid,
			Message: invalidMessage,
			Display: presenter.Present(models.OutcomeInvalid, ""),
			At:      g.now(),
		}
		g.presentLocked(res)
		g.mu.Unlock()

		g.log.Info().Str("scan_id", scanID).Msg("Invalid payload")
		g.emitState(Presenting)
		g.emitResult(res)
		g.scheduleDwell(token, res)
		return true
	}

	g.state = Submitting
	g.wg.Add(1)
	g.mu.Unlock()

	g.emitState(Submitting)
	g.log.Info().
		Str("scan_id", scanID).
		Str("target", string(target.TargetKind)+"/"+target.TargetID).
		Msg("Submitting credential")

	go g.submit(token, scanID, target, cred)
	return true
}

// Wait blocks until every submission started so far has finished.
func (g *Gate) Wait() {
	g.wg.Wait()
}

func (g *Gate) submit(token uint64, scanID string, target models.ScanContext, cred models.InvitationCredential) {
	defer g.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	resp, err := g.validator.Validate(ctx, target, cred)
	cancel()

	g.onValidationResult(token, Result{
		ScanID: scanID,
		Target: target,
		Email:  cred.Email,
	}, resp, err)
}

func (g *Gate) onValidationResult(token uint64, res Result, resp *api.ValidationResponse, err error) {
	log := g.log.With().Str("scan_id", res.ScanID).Logger()

	// reached is false for transport failures and unrecognized error replies.
	reached := err == nil
	if err != nil {
		res.Message = api.MessageOf(err)
		res.Outcome = presenter.Classify(res.Message)
		if res.Outcome == models.OutcomeNotFound {
			res.Outcome = models.OutcomeNetworkError
			log.Error().Err(err).Msg("Validation request failed")
		} else {
			reached = true
			log.Warn().Err(err).Str("outcome", string(res.Outcome)).Msg("Validation answered with an error status")
		}
	} else {
		res.Outcome = presenter.Classify(resp.Message)
		res.Message = resp.Message
		if resp.Profile != nil {
			id := resp.Profile.ID
			res.ProfileID = &id
		}
	}

	if g.isStale(token) {
		log.Info().Str("outcome", string(res.Outcome)).Msg("Discarding response from closed scanner")
		return
	}

	// Any answered validation reloads the roster before the outcome shows.
	if reached {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		if _, rerr := g.reloader.Reload(ctx); rerr != nil {
			log.Warn().Err(rerr).Msg("Roster reload after validation failed")
		}
		cancel()
	}

	res.Display = presenter.Present(res.Outcome, res.Message)
	res.At = g.now()

	g.mu.Lock()
	if token != g.token || g.state != Submitting {
		g.mu.Unlock()
		log.Info().Str("outcome", string(res.Outcome)).Msg("Discarding response from closed scanner")
		return
	}
	g.presentLocked(res)
	g.mu.Unlock()

	log.Info().Str("outcome", string(res.Outcome)).Str("message", res.Message).Msg("Scan presented")
	g.emitState(Presenting)
	g.emitResult(res)
	g.scheduleDwell(token, res)
}

func (g *Gate) isStale(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return token != g.token
}

// presentLocked shows res. The dwell is scheduled by scheduleDwell once the
// lock is released.
func (g *Gate) presentLocked(res Result) {
	g.state = Presenting
	g.current = &res
}

// scheduleDwell starts the dwell of res. It must be called without g.mu held
// since AfterFunc may run its callback before returning.
func (g *Gate) scheduleDwell(token uint64, res Result) {
	timer := g.afterFunc(g.dwell, func() {
		g.finishPresenting(token, res)
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if token == g.token && g.state == Presenting && g.current != nil && g.current.ScanID == res.ScanID {
		g.timer = timer
		return
	}
	timer.Stop()
}

// finishPresenting ends the dwell. A confirmed match with a profile closes
// the scanner and opens the profile; anything else goes back to scanning.
func (g *Gate) finishPresenting(token uint64, res Result) {
	g.mu.Lock()
	if token != g.token || g.state != Presenting || g.current == nil || g.current.ScanID != res.ScanID {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.current = nil

	var path string
	if res.Outcome == models.OutcomeMatched && res.ProfileID != nil {
		path = models.ProfilePath(*res.ProfileID, res.Target)
		g.state = Idle
	} else {
		g.state = Scanning
	}
	state := g.state
	g.mu.Unlock()

	if path != "" && g.navigator != nil {
		g.navigator.Navigate(path)
	}
	g.emitState(state)
}

func (g *Gate) emitState(s State) {
	if g.onState != nil {
		g.onState(s)
	}
}

func (g *Gate) emitResult(res Result) {
	if g.onResult != nil {
		g.onResult(res)
	}
}
