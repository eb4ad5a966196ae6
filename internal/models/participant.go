package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Participant represents an attendee registered to a session or event
type Participant struct {
	ID        int64     `json:"id" yaml:"id"`
	FullName  string    `json:"full_name" yaml:"full_name"`
	Email     string    `json:"email" yaml:"email"`
	Image     string    `json:"image,omitempty" yaml:"image,omitempty"`
	IsVisited Flag      `json:"is_visited" yaml:"is_visited"`
	UpdatedAt Timestamp `json:"updated_at" yaml:"updated_at"`
}

// Initials returns the first letters of the first and second words of the
// name, used when a participant has no photo.
func (p Participant) Initials() string {
	words := strings.Fields(p.FullName)
	if len(words) == 0 {
		return ""
	}
	first := []rune(words[0])[:1]
	if len(words) == 1 {
		return strings.ToUpper(string(first))
	}
	second := []rune(words[1])[:1]
	return strings.ToUpper(string(first) + "." + string(second))
}

// Profile is the detailed participant view returned by profile-data
type Profile struct {
	Participant
	Phone       string `json:"phone,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Birthday    string `json:"birthday,omitempty"`
	City        string `json:"city,omitempty"`
	CurrentStep string `json:"current_step,omitempty"`
	Motivation  string `json:"motivation,omitempty"`
}

// Step returns the current step with underscores turned into spaces
func (p Profile) Step() string {
	return strings.ReplaceAll(p.CurrentStep, "_", " ")
}

// Flag is a boolean that also accepts the 0/1 integers some backends send
type Flag bool

// UnmarshalJSON accepts true/false, 0/1 and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", `"1"`:
		*f = true
	case "false", "0", `"0"`, "null", `""`:
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

// MarshalJSON always emits a JSON boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// Timestamp decodes RFC 3339 and SQL-style datetimes, treating null as zero
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses any of the supported layouts.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	return t.parse(raw)
}

// UnmarshalYAML parses fixture timestamps with the same layouts.
func (t *Timestamp) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return t.parse(raw)
}

func (t *Timestamp) parse(raw string) error {
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// MarshalJSON emits RFC 3339, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
