package app

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"checkin-companion/internal/api"
	"checkin-companion/internal/models"
	"checkin-companion/internal/reconciler"
)

// apiSource reads rosters from the backend
type apiSource struct {
	client *api.Client
	locale language.Tag
}

func (s *apiSource) Fetch(ctx context.Context, target models.ScanContext) (reconciler.Fetched, error) {
	switch target.TargetKind {
	case models.TargetSession:
		data, err := s.client.GetSessionData(ctx, target.TargetID)
		if err != nil {
			return reconciler.Fetched{}, err
		}
		id := data.Session.ID
		info := models.InfoSession{ID: id, Name: data.Session.Name, Formation: data.Session.Formation}
		return reconciler.Fetched{
			Payload: models.RosterPayload{
				Participants: data.Participants,
				Attended:     data.Attended,
			},
			NumericID: &id,
			Title:     info.Title(),
		}, nil

	case models.TargetEvent:
		data, err := s.client.GetEvent(ctx, target.TargetID)
		if err != nil {
			return reconciler.Fetched{}, err
		}
		fetched := reconciler.Fetched{
			Payload: models.RosterPayload{
				Participants: data.Participants,
				Attended:     models.VisitedOnly(data.Participants),
			},
		}
		if data.Event != nil {
			id := data.Event.ID
			fetched.NumericID = &id
			fetched.Title = data.Event.Title(s.locale)
		}
		return fetched, nil

	default:
		return reconciler.Fetched{}, fmt.Errorf("unknown target kind %q", target.TargetKind)
	}
}

// apiValidator submits scanned credentials to the endpoint matching the
// target kind
type apiValidator struct {
	client *api.Client
}

func (v *apiValidator) Validate(ctx context.Context, target models.ScanContext, cred models.InvitationCredential) (*api.ValidationResponse, error) {
	switch target.TargetKind {
	case models.TargetSession:
		return v.client.ValidateInvitation(ctx, api.SessionValidation{
			Code:      cred.Code,
			Email:     cred.Email,
			ID:        target.TargetID,
			SessionID: target.NumericID,
		})
	case models.TargetEvent:
		return v.client.ValidateEventInvitation(ctx, api.EventValidation{
			Code:    cred.Code,
			Email:   cred.Email,
			ID:      target.TargetID,
			EventID: target.NumericID,
		})
	default:
		return nil, fmt.Errorf("unknown target kind %q", target.TargetKind)
	}
}
