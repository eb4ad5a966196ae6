package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"checkin-companion/internal/api"
	"checkin-companion/internal/devserver"
	"checkin-companion/internal/gate"
	"checkin-companion/internal/handler"
	"checkin-companion/internal/models"
	"checkin-companion/internal/storage"
)

type manualTimers struct {
	mu  sync.Mutex
	fns []func()
}

type manualTimer struct{}

func (manualTimer) Stop() bool { return true }

func (m *manualTimers) after(d time.Duration, f func()) gate.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, f)
	return manualTimer{}
}

func (m *manualTimers) fire() {
	m.mu.Lock()
	fns := m.fns
	m.fns = nil
	m.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *fakeSender) SendMessage(ctx context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, phone+": "+message)
	return nil
}

func (s *fakeSender) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

type testEnv struct {
	app       *App
	timers    *manualTimers
	navigator *recordingNavigator
	sender    *fakeSender
	journal   *storage.Journal
}

func newTestEnv(t *testing.T, serverOpts ...devserver.Option) *testEnv {
	t.Helper()
	return newWrappedTestEnv(t, nil, serverOpts...)
}

// newWrappedTestEnv runs the dev server behind wrap, when set.
func newWrappedTestEnv(t *testing.T, wrap func(http.Handler) http.Handler, serverOpts ...devserver.Option) *testEnv {
	t.Helper()

	fixture, err := devserver.LoadFixture("")
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	routes := devserver.New(fixture, serverOpts...).Routes()
	if wrap != nil {
		routes = wrap(routes)
	}
	srv := httptest.NewServer(routes)
	t.Cleanup(srv.Close)

	journal, err := storage.OpenJournal(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	env := &testEnv{
		timers:    &manualTimers{},
		navigator: &recordingNavigator{},
		sender:    &fakeSender{},
		journal:   journal,
	}
	log := zerolog.Nop()
	env.app = New(api.NewClient(srv.URL+"/api"), log, Options{
		ImageURL:  "http://img.test/storage/images/",
		Locale:    language.French,
		AfterFunc: env.timers.after,
		Navigator: env.navigator,
		Journal:   journal,
		Notifier:  handler.NewCheckinHandler(env.sender, &handler.Config{StaffPhone: "0600000000"}, log),
	})
	return env
}

func TestRefreshLoadsHomeLists(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := len(env.app.InfoSessions()); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}
	events := env.app.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if got := events[0].Title(env.app.Locale()); got != "Journée de démonstra..." {
		t.Fatalf("localized title = %q", got)
	}
	if got := env.app.EventCoverURL(events[0]); got != "http://img.test/storage/images/events/demo-day.jpg" {
		t.Fatalf("cover url = %q", got)
	}
}

func TestAccessDenied(t *testing.T) {
	env := newTestEnv(t, devserver.WithToken("secret"))
	denied := 0
	env.app.opts.OnAccessDenied = func() { denied++ }

	err := env.app.Refresh(context.Background())
	if !errors.Is(err, ErrAccessDenied) || !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if _, err := env.app.OpenSession(context.Background(), "7"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied opening session, got %v", err)
	}
	if denied != 2 {
		t.Fatalf("hook called %d times, want 2", denied)
	}
}

func TestRosterReloadRejectedAfterScan(t *testing.T) {
	var deny atomic.Bool
	env := newWrappedTestEnv(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if deny.Load() && r.URL.Path == "/api/session-data" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"message":"Unauthenticated."}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	var denied atomic.Int32
	env.app.opts.OnAccessDenied = func() { denied.Add(1) }

	screen, err := env.app.OpenSession(context.Background(), "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	deny.Store(true)

	screen.OpenScanner()
	screen.Scan(`{"email":"amina@example.com","code":"A1B2"}`)
	screen.Wait()

	if got := denied.Load(); got != 1 {
		t.Fatalf("access denied hook called %d times, want 1", got)
	}
	if _, ok := screen.Current(); ok {
		t.Fatal("outcome must not present after access is denied")
	}
	if screen.State() != gate.Idle {
		t.Fatalf("state = %s, want idle", screen.State())
	}
	env.timers.fire()
	if len(env.navigator.Paths()) != 0 {
		t.Fatalf("unexpected navigation %v", env.navigator.Paths())
	}
	if len(env.sender.Messages()) != 0 {
		t.Fatal("rejected scan must not notify staff")
	}
}

func TestSessionScanFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	screen, err := env.app.OpenSession(ctx, "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if screen.Title() != "Coding - Session 7" {
		t.Fatalf("title = %q", screen.Title())
	}
	if id := screen.Target().NumericID; id == nil || *id != 7 {
		t.Fatalf("numeric id = %v, want 7", id)
	}
	if attended, total := screen.Stats(); attended != 1 || total != 2 {
		t.Fatalf("stats = %d/%d, want 1/2", attended, total)
	}
	if first := screen.Participants()[0]; first.ID != 2 {
		t.Fatalf("visited participant should render first, got %d", first.ID)
	}

	if !screen.OpenScanner() {
		t.Fatal("OpenScanner returned false")
	}
	if !screen.Scan(`{"email":"amina@example.com","code":"A1B2"}`) {
		t.Fatal("payload dropped")
	}
	if screen.Scan(`{"email":"youssef@example.com","code":"C3D4"}`) {
		t.Fatal("second payload accepted while submitting")
	}
	screen.Wait()

	res, ok := screen.Current()
	if !ok || res.Outcome != models.OutcomeMatched || res.Display.Headline != "Welcome" {
		t.Fatalf("unexpected result %+v", res)
	}
	if attended, total := screen.Stats(); attended != 2 || total != 2 {
		t.Fatalf("stats after match = %d/%d, want 2/2", attended, total)
	}

	messages := env.sender.Messages()
	if len(messages) != 1 || !strings.Contains(messages[0], "Amina Berrada checked in to Coding - Session 7") {
		t.Fatalf("unexpected notifications %v", messages)
	}

	env.timers.fire()
	if got := env.navigator.Paths(); len(got) != 1 || got[0] != "profile/1?session=7" {
		t.Fatalf("navigation = %v", got)
	}
	if screen.State() != gate.Idle {
		t.Fatalf("state = %s, want idle", screen.State())
	}

	history, err := env.app.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Outcome != models.OutcomeMatched || history[0].Email != "amina@example.com" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRepeatScanShowsAlreadyPassed(t *testing.T) {
	env := newTestEnv(t)
	screen, err := env.app.OpenSession(context.Background(), "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	screen.OpenScanner()
	screen.Scan(`{"email":"youssef@example.com","code":"C3D4"}`)
	screen.Wait()

	res, ok := screen.Current()
	if !ok || res.Outcome != models.OutcomeAlreadyParticipated || res.Display.Color != "#fb923c" {
		t.Fatalf("unexpected result %+v", res)
	}
	env.timers.fire()
	if screen.State() != gate.Scanning {
		t.Fatalf("state = %s, want scanning", screen.State())
	}
	if len(env.sender.Messages()) != 0 {
		t.Fatal("only matches notify staff")
	}
}

func TestInvalidPayloadIsJournaled(t *testing.T) {
	env := newTestEnv(t)
	screen, err := env.app.OpenSession(context.Background(), "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	screen.OpenScanner()
	screen.Scan("https://example.com")
	res, ok := screen.Current()
	if !ok || res.Outcome != models.OutcomeInvalid || res.Display.Headline != "No such participated" {
		t.Fatalf("unexpected result %+v", res)
	}

	counts, err := env.journal.CountByOutcome(context.Background(), models.TargetSession, "7")
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if counts[models.OutcomeInvalid] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestEventScanFlow(t *testing.T) {
	env := newTestEnv(t)
	screen, err := env.app.OpenEvent(context.Background(), "3")
	if err != nil {
		t.Fatalf("OpenEvent: %v", err)
	}
	if screen.Title() != "Journée de démonstra..." {
		t.Fatalf("title = %q", screen.Title())
	}
	if attended, total := screen.Stats(); attended != 0 || total != 2 {
		t.Fatalf("stats = %d/%d, want 0/2", attended, total)
	}

	screen.OpenScanner()
	screen.Scan(`{"email":"salma@example.com","code":"E5F6"}`)
	screen.Wait()

	res, ok := screen.Current()
	if !ok || res.Outcome != models.OutcomeMatched || res.ProfileID != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if attended, _ := screen.Stats(); attended != 1 {
		t.Fatalf("attended = %d, want 1", attended)
	}

	env.timers.fire()
	if screen.State() != gate.Scanning {
		t.Fatalf("event match without profile should keep scanning, got %s", screen.State())
	}
	if len(env.navigator.Paths()) != 0 {
		t.Fatalf("unexpected navigation %v", env.navigator.Paths())
	}
}

func TestCloseScannerDiscardsOutcome(t *testing.T) {
	env := newTestEnv(t)
	screen, err := env.app.OpenSession(context.Background(), "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	screen.OpenScanner()
	screen.Scan(`{"email":"amina@example.com","code":"A1B2"}`)
	screen.CloseScanner()
	screen.Wait()

	if _, ok := screen.Current(); ok {
		t.Fatal("closed scanner must not present")
	}
	if screen.State() != gate.Idle {
		t.Fatalf("state = %s, want idle", screen.State())
	}
	env.timers.fire()
	if len(env.navigator.Paths()) != 0 {
		t.Fatalf("closed scanner must not navigate, got %v", env.navigator.Paths())
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	screen, err := env.app.OpenSession(context.Background(), "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	got := screen.Search("AMINA")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("search = %+v", got)
	}
	if _, err := screen.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := screen.Participants(); len(got) != 1 {
		t.Fatalf("search should survive refresh, got %d", len(got))
	}
	if got := screen.Search("  "); len(got) != 2 {
		t.Fatalf("blank search = %d, want 2", len(got))
	}
}

func TestProfileManualCheckIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	screen, err := env.app.OpenSession(ctx, "7")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	profile, err := screen.OpenProfile(ctx, 1)
	if err != nil {
		t.Fatalf("OpenProfile: %v", err)
	}
	if profile.BackPath() != "session/7" {
		t.Fatalf("back path = %q", profile.BackPath())
	}
	if bool(profile.Profile().IsVisited) {
		t.Fatal("profile should start unvisited")
	}

	status, err := profile.ManualCheckIn(ctx)
	if err != nil || status != 200 {
		t.Fatalf("ManualCheckIn = %d, %v", status, err)
	}
	if !bool(profile.Profile().IsVisited) {
		t.Fatal("profile should be reloaded as visited")
	}
	if attended, total := screen.Stats(); attended != 2 || total != 2 {
		t.Fatalf("roster not patched, stats = %d/%d", attended, total)
	}

	updated, err := profile.UploadPhoto(ctx, "face.jpg", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if updated.Image != "1-face.jpg" {
		t.Fatalf("image = %q", updated.Image)
	}
	if got := profile.ImageURL(); got != "http://img.test/storage/images/participants/1-face.jpg" {
		t.Fatalf("image url = %q", got)
	}
	if p, _ := screen.Store().FindByID(1); p.Image != "1-face.jpg" {
		t.Fatalf("roster image = %q", p.Image)
	}
}

func TestProfileOpenedDirectlyGoesHome(t *testing.T) {
	env := newTestEnv(t)
	profile, err := env.app.OpenProfile(context.Background(), 3, models.ScanContext{})
	if err != nil {
		t.Fatalf("OpenProfile: %v", err)
	}
	if profile.BackPath() != models.HomePath {
		t.Fatalf("back path = %q", profile.BackPath())
	}
	if profile.Profile().Initials() != "S.I" {
		t.Fatalf("initials = %q", profile.Profile().Initials())
	}
}

func TestParseProfilePath(t *testing.T) {
	target := models.ScanContext{TargetID: "3", TargetKind: models.TargetEvent}
	id, from, ok := ParseProfilePath(models.ProfilePath(42, target))
	if !ok || id != 42 || from.TargetID != "3" || from.TargetKind != models.TargetEvent {
		t.Fatalf("ParseProfilePath = %d %+v %v", id, from, ok)
	}
	if _, _, ok := ParseProfilePath("session/7"); ok {
		t.Fatal("expected non-profile path to fail")
	}
}
