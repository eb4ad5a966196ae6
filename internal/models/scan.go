package models

import "fmt"

// TargetKind identifies what a roster belongs to
type TargetKind string

const (
	TargetSession TargetKind = "session"
	TargetEvent   TargetKind = "event"
)

// ScanContext identifies what scans are validated against. It is set when a
// roster is loaded and read-only while scanning.
type ScanContext struct {
	TargetID   string
	TargetKind TargetKind
	// NumericID is the server-side id from the roster payload, nil until known.
	NumericID *int64
}

// InvitationCredential is the decoded content of an invitation QR code
type InvitationCredential struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

// Outcome is the terminal result of one scan attempt
type Outcome string

const (
	OutcomeMatched             Outcome = "matched"
	OutcomeAlreadyParticipated Outcome = "already_participated"
	OutcomeWrongGroup          Outcome = "wrong_group"
	OutcomeNotFound            Outcome = "not_found"
	OutcomeNetworkError        Outcome = "network_error"
	OutcomeInvalid             Outcome = "invalid"
)

// Outcomes lists every outcome in display order
var Outcomes = []Outcome{
	OutcomeMatched,
	OutcomeAlreadyParticipated,
	OutcomeWrongGroup,
	OutcomeNotFound,
	OutcomeNetworkError,
	OutcomeInvalid,
}

// Navigation paths emitted as intents
const HomePath = "/"

// SessionPath returns the route of a session roster screen
func SessionPath(id string) string {
	return fmt.Sprintf("session/%s", id)
}

// EventPath returns the route of an event roster screen
func EventPath(id string) string {
	return fmt.Sprintf("event/%s", id)
}

// ProfilePath returns the profile route with the scan context attached
func ProfilePath(profileID int64, ctx ScanContext) string {
	if ctx.TargetID == "" {
		return fmt.Sprintf("profile/%d", profileID)
	}
	return fmt.Sprintf("profile/%d?%s=%s", profileID, ctx.TargetKind, ctx.TargetID)
}
