// Package payload decodes invitation QR codes into credentials.
package payload

import (
	"encoding/json"
	"errors"
	"strings"

	"checkin-companion/internal/models"
)

// Prefix is the literal every invitation payload starts with. Checking it
// first keeps arbitrary barcodes away from the JSON decoder.
const Prefix = `{"email`

// ErrInvalid is returned for anything that is not an invitation payload
var ErrInvalid = errors.New("invalid invitation payload")

type wireCredential struct {
	Email *string `json:"email"`
	Code  *string `json:"code"`
}

// Parse validates and decodes a raw scanned string.
func Parse(raw string) (models.InvitationCredential, error) {
	if !strings.HasPrefix(raw, Prefix) {
		return models.InvitationCredential{}, ErrInvalid
	}

	var wire wireCredential
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return models.InvitationCredential{}, ErrInvalid
	}
	if wire.Email == nil || wire.Code == nil {
		return models.InvitationCredential{}, ErrInvalid
	}

	email := strings.TrimSpace(*wire.Email)
	code := strings.TrimSpace(*wire.Code)
	if email == "" || code == "" {
		return models.InvitationCredential{}, ErrInvalid
	}

	return models.InvitationCredential{Code: code, Email: email}, nil
}

// Encode produces the payload a badge QR code carries. Email is written first
// so the result passes the prefix check.
func Encode(cred models.InvitationCredential) (string, error) {
	wire := struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}{Email: cred.Email, Code: cred.Code}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
