package devserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"checkin-companion/internal/api"
	"checkin-companion/internal/presenter"
)

func newTestServer(t *testing.T, opts ...Option) *api.Client {
	t.Helper()
	fixture, err := LoadFixture("")
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	srv := httptest.NewServer(New(fixture, opts...).Routes())
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL + "/api")
}

func TestEmbeddedFixture(t *testing.T) {
	fixture, err := LoadFixture("")
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(fixture.Sessions) != 2 || len(fixture.Events) != 1 || len(fixture.Participants) != 3 {
		t.Fatalf("unexpected fixture sizes %d/%d/%d", len(fixture.Sessions), len(fixture.Events), len(fixture.Participants))
	}
	if got := fixture.Events[0].Name.For(language.French); got != "Journée de démonstration" {
		t.Fatalf("French name = %q", got)
	}
	if fixture.Participants[0].UpdatedAt.IsZero() {
		t.Fatal("expected fixture timestamp to parse")
	}
}

func TestParseFixtureRejectsGarbage(t *testing.T) {
	if _, err := ParseFixture([]byte("sessions: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestHomeLists(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	infos, err := client.ListInfoSessions(ctx)
	if err != nil {
		t.Fatalf("ListInfoSessions: %v", err)
	}
	if len(infos) != 2 || infos[0].Title() != "Coding - Session 7" || !bool(infos[1].IsFinish) {
		t.Fatalf("unexpected infos %+v", infos)
	}

	events, err := client.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Name.String() != "Demo Day" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestSessionValidationMessages(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	validate := func(email, code string) *api.ValidationResponse {
		t.Helper()
		resp, err := client.ValidateInvitation(ctx, api.SessionValidation{Email: email, Code: code, ID: "7"})
		if err != nil {
			t.Fatalf("ValidateInvitation: %v", err)
		}
		return resp
	}

	if got := validate("nobody@example.com", "X").Message; got != "No such participant." {
		t.Fatalf("unknown credential message = %q", got)
	}
	if got := validate("amina@example.com", "wrong").Message; got != "No such participant." {
		t.Fatalf("wrong code message = %q", got)
	}
	if got := validate("salma@example.com", "E5F6").Message; got != presenter.MessageWrongGroup {
		t.Fatalf("other session message = %q", got)
	}
	if got := validate("youssef@example.com", "C3D4").Message; got != presenter.MessageAlreadyParticipated {
		t.Fatalf("visited message = %q", got)
	}

	resp := validate("AMINA@example.com", "A1B2")
	if resp.Message != presenter.MessageMatched || resp.Profile == nil || resp.Profile.ID != 1 {
		t.Fatalf("unexpected match %+v", resp)
	}
	if got := validate("amina@example.com", "A1B2").Message; got != presenter.MessageAlreadyParticipated {
		t.Fatalf("second scan message = %q", got)
	}

	data, err := client.GetSessionData(ctx, "7")
	if err != nil {
		t.Fatalf("GetSessionData: %v", err)
	}
	if len(data.Participants) != 2 || len(data.Attended) != 2 {
		t.Fatalf("expected both session participants attended, got %d/%d", len(data.Attended), len(data.Participants))
	}
}

func TestSessionValidationUnknownSession(t *testing.T) {
	client := newTestServer(t)
	_, err := client.ValidateInvitation(context.Background(), api.SessionValidation{Email: "amina@example.com", Code: "A1B2", ID: "99"})
	if api.MessageOf(err) != "Session not found." {
		t.Fatalf("expected session not found error, got %v", err)
	}
}

func TestEventValidation(t *testing.T) {
	now := time.Date(2025, 5, 10, 18, 30, 0, 0, time.UTC)
	client := newTestServer(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	resp, err := client.ValidateEventInvitation(ctx, api.EventValidation{Email: "youssef@example.com", Code: "C3D4", ID: "3"})
	if err != nil {
		t.Fatalf("ValidateEventInvitation: %v", err)
	}
	if resp.Message != presenter.MessageWrongGroup {
		t.Fatalf("unregistered message = %q", resp.Message)
	}

	resp, err = client.ValidateEventInvitation(ctx, api.EventValidation{Email: "salma@example.com", Code: "E5F6", ID: "3"})
	if err != nil {
		t.Fatalf("ValidateEventInvitation: %v", err)
	}
	if resp.Message != presenter.MessageMatched || resp.Profile != nil {
		t.Fatalf("unexpected event match %+v", resp)
	}

	data, err := client.GetEvent(ctx, "3")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if data.Event == nil || data.Event.ID != 3 || len(data.Participants) != 2 {
		t.Fatalf("unexpected event data %+v", data)
	}
	for _, p := range data.Participants {
		if p.ID == 3 && (!bool(p.IsVisited) || !p.UpdatedAt.Equal(now)) {
			t.Fatalf("expected salma visited at %v, got %+v", now, p)
		}
		if p.ID == 1 && bool(p.IsVisited) {
			t.Fatal("event check-in must not mark other participants")
		}
	}
}

func TestManualCheckInIsIdempotent(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		status, err := client.ManualCheckIn(ctx, "1")
		if err != nil {
			t.Fatalf("ManualCheckIn: %v", err)
		}
		if status != 200 {
			t.Fatalf("status = %d, want 200", status)
		}
	}
	profile, err := client.GetProfile(ctx, "1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !bool(profile.IsVisited) || profile.City != "Casablanca" || profile.Step() != "info session" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if _, err := client.ManualCheckIn(ctx, "404"); api.MessageOf(err) != "Participant not found." {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUploadPhoto(t *testing.T) {
	client := newTestServer(t)
	profile, err := client.UploadPhoto(context.Background(), 2, "face.jpg", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if profile.ID != 2 || profile.Image != "2-face.jpg" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestTokenRequired(t *testing.T) {
	client := newTestServer(t, WithToken("secret"))
	ctx := context.Background()

	if _, err := client.ListEvents(ctx); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := client.WithToken("secret").ListEvents(ctx); err != nil {
		t.Fatalf("ListEvents with token: %v", err)
	}
}
