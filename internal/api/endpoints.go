package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"checkin-companion/internal/models"
)

// SessionInfo is the session header of a session-data response.
type SessionInfo struct {
	ID        int64  `json:"id"`
	Formation string `json:"formation"`
	Name      string `json:"name"`
}

// SessionData is the roster of one info session.
type SessionData struct {
	Session      SessionInfo          `json:"session"`
	Participants []models.Participant `json:"participants"`
	Attended     []models.Participant `json:"attended"`
}

// EventData is the roster of one event. Event is nil when the backend did not
// return one.
type EventData struct {
	Event        *models.Event
	Participants []models.Participant
}

// ProfileRef identifies the profile a validation matched.
type ProfileRef struct {
	ID int64 `json:"id"`
}

// ValidationResponse is the body of both validation endpoints.
type ValidationResponse struct {
	Message string      `json:"message"`
	Profile *ProfileRef `json:"profile,omitempty"`
}

// SessionValidation is the body of PUT validate-invitation.
type SessionValidation struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	ID        string `json:"id"`
	SessionID *int64 `json:"sessionId"`
}

// EventValidation is the body of PUT validate-event-invitation.
type EventValidation struct {
	Code    string `json:"code"`
	Email   string `json:"email"`
	ID      string `json:"id"`
	EventID *int64 `json:"eventId"`
}

// ManualCheckIn is the body of PUT manual-checking.
type ManualCheckIn struct {
	ID string `json:"id"`
}

// ListInfoSessions fetches the info sessions shown on the home screen.
func (c *Client) ListInfoSessions(ctx context.Context) ([]models.InfoSession, error) {
	var body struct {
		Infos []models.InfoSession `json:"infos"`
	}
	err := c.get(ctx, "lionsgate/infosessions", &body)
	return body.Infos, err
}

// ListEvents fetches the events shown on the home screen.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := c.get(ctx, "events", &events)
	return events, err
}

// GetSessionData fetches the roster of an info session.
func (c *Client) GetSessionData(ctx context.Context, id string) (*SessionData, error) {
	var data SessionData
	if err := c.get(ctx, "session-data?id="+url.QueryEscape(id), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEvent fetches the roster of an event. The backend may answer with
// {event, participants}, a list of events, or the event object itself.
func (c *Client) GetEvent(ctx context.Context, id string) (*EventData, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "events/"+url.PathEscape(id), &raw); err != nil {
		return nil, err
	}
	return decodeEventData(raw, id)
}

func decodeEventData(raw json.RawMessage, id string) (*EventData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return &EventData{}, nil
	}

	if raw[0] == '[' {
		var events []models.Event
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, fmt.Errorf("decoding event list: %w", err)
		}
		for i := range events {
			if strconv.FormatInt(events[i].ID, 10) == id {
				return &EventData{Event: &events[i]}, nil
			}
		}
		return &EventData{}, nil
	}

	var wrapped struct {
		Event        *models.Event        `json:"event"`
		Participants []models.Participant `json:"participants"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	data := &EventData{Event: wrapped.Event, Participants: wrapped.Participants}
	if data.Event == nil {
		var bare models.Event
		if err := json.Unmarshal(raw, &bare); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		data.Event = &bare
	}
	if data.Participants == nil {
		data.Participants = []models.Participant{}
	}
	return data, nil
}

// ValidateInvitation submits a scanned credential against an info session.
func (c *Client) ValidateInvitation(ctx context.Context, body SessionValidation) (*ValidationResponse, error) {
	var resp ValidationResponse
	if err := c.put(ctx, "validate-invitation", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateEventInvitation submits a scanned credential against an event.
func (c *Client) ValidateEventInvitation(ctx context.Context, body EventValidation) (*ValidationResponse, error) {
	var resp ValidationResponse
	if err := c.put(ctx, "validate-event-invitation", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ManualCheckIn marks a participant visited without a scan and returns the
// status code reported in the body.
func (c *Client) ManualCheckIn(ctx context.Context, id string) (int, error) {
	var resp struct {
		Status int `json:"status"`
	}
	if err := c.put(ctx, "manual-checking", ManualCheckIn{ID: id}, &resp); err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// GetProfile fetches a participant profile.
func (c *Client) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.get(ctx, "profile-data?id="+url.QueryEscape(id), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UploadPhoto replaces a participant photo and returns the updated profile.
func (c *Client) UploadPhoto(ctx context.Context, id int64, fileName string, photo io.Reader) (*models.Profile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, fileName))
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating photo part: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return nil, fmt.Errorf("copying photo: %w", err)
	}
	if err := w.WriteField("id", strconv.FormatInt(id, 10)); err != nil {
		return nil, fmt.Errorf("writing id field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"session-photo", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp struct {
		Profile models.Profile `json:"profile"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Profile, nil
}
