package models

import (
	"encoding/json"
	"testing"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

func TestFlagDecoding(t *testing.T) {
	cases := map[string]bool{
		`true`: true, `1`: true, `"1"`: true,
		`false`: false, `0`: false, `null`: false, `""`: false,
	}
	for raw, want := range cases {
		var f Flag
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("Unmarshal(%s): %v", raw, err)
		}
		if bool(f) != want {
			t.Fatalf("Unmarshal(%s) = %v, want %v", raw, f, want)
		}
	}

	var f Flag
	if err := json.Unmarshal([]byte(`"yes"`), &f); err == nil {
		t.Fatal("expected error for unknown flag value")
	}
}

func TestTimestampLayouts(t *testing.T) {
	for _, raw := range []string{`"2025-04-01T09:00:00Z"`, `"2025-04-01 09:00:00"`} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("Unmarshal(%s): %v", raw, err)
		}
		if ts.Hour() != 9 || ts.Day() != 1 {
			t.Fatalf("Unmarshal(%s) = %v", raw, ts.Time)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.IsZero() {
		t.Fatalf("null should decode to zero, got %v (%v)", ts.Time, err)
	}
	if data, _ := json.Marshal(ts); string(data) != "null" {
		t.Fatalf("zero timestamp marshals to %s", data)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestLocalizedText(t *testing.T) {
	var text LocalizedText
	if err := json.Unmarshal([]byte(`{"en":"Demo Day","fr":"Journée","ar":"يوم"}`), &text); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := text.For(language.French); got != "Journée" {
		t.Fatalf("French = %q", got)
	}
	if got := text.For(language.Arabic); got != "يوم" {
		t.Fatalf("Arabic = %q", got)
	}
	if got := text.For(language.Japanese); got != "Demo Day" {
		t.Fatalf("unsupported locale should fall back to English, got %q", got)
	}

	var plain LocalizedText
	if err := json.Unmarshal([]byte(`"Hackathon"`), &plain); err != nil {
		t.Fatalf("Unmarshal plain: %v", err)
	}
	if plain.For(language.French) != "Hackathon" {
		t.Fatalf("plain text = %q", plain.For(language.French))
	}

	var fromYAML struct {
		Name LocalizedText `yaml:"name"`
	}
	if err := yaml.Unmarshal([]byte("name:\n  fr: Salon\n  ar: معرض\n"), &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if got := fromYAML.Name.String(); got != "Salon" {
		t.Fatalf("fallback without English = %q, want French", got)
	}
}

func TestTitles(t *testing.T) {
	session := InfoSession{Name: "Session 7", Formation: "Coding"}
	if got := session.Title(); got != "Coding - Session 7" {
		t.Fatalf("session title = %q", got)
	}

	short := Event{Name: LocalizedText{Plain: "Demo Day"}}
	if got := short.Title(language.English); got != "Demo Day" {
		t.Fatalf("short title = %q", got)
	}
	long := Event{Name: LocalizedText{Plain: "Journée de démonstration"}}
	if got := long.Title(language.English); got != "Journée de démonstra..." {
		t.Fatalf("long title = %q", got)
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"amina berrada":     "A.B",
		"Youssef El Amrani": "Y.E",
		"Ana Maria Lopez":   "A.M",
		"Salma":             "S",
		"  ":                "",
		"élodie martin":     "É.M",
	}
	for name, want := range cases {
		if got := (Participant{FullName: name}).Initials(); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestPaths(t *testing.T) {
	target := ScanContext{TargetID: "7", TargetKind: TargetSession}
	if got := ProfilePath(42, target); got != "profile/42?session=7" {
		t.Fatalf("ProfilePath = %q", got)
	}
	if got := ProfilePath(42, ScanContext{}); got != "profile/42" {
		t.Fatalf("ProfilePath without context = %q", got)
	}
	if SessionPath("7") != "session/7" || EventPath("3") != "event/3" {
		t.Fatal("unexpected roster paths")
	}
}

func TestVisitedOnly(t *testing.T) {
	got := VisitedOnly([]Participant{{ID: 1, IsVisited: true}, {ID: 2}, {ID: 3, IsVisited: true}})
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("VisitedOnly = %+v", got)
	}
	snapshot := NewRosterSnapshot(RosterPayload{Participants: make([]Participant, 3), Attended: got})
	if snapshot.AttendedCount != 2 || snapshot.TotalCount != 3 {
		t.Fatalf("counts = %d/%d", snapshot.AttendedCount, snapshot.TotalCount)
	}
}
