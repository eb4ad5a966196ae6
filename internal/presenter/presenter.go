// Package presenter maps validation outcomes to what the scanner overlay shows.
// The server message vocabulary lives here and nowhere else.
package presenter

import "checkin-companion/internal/models"

// Server messages recognized by Classify
const (
	MessageMatched             = "Credentials match."
	MessageAlreadyParticipated = "Already participated."
	MessageWrongGroup          = "Participant belong to another session"
)

// Overlay colors
const (
	ColorGreen  = "#4ade80"
	ColorOrange = "#fb923c"
	ColorWhite  = "#fff"
	ColorRed    = "#dc2626"
)

// GenericNetworkError is shown when a failed request carried no message
const GenericNetworkError = "Network error"

// Display is the icon color and headline for one outcome
type Display struct {
	Outcome  models.Outcome
	Color    string
	Headline string
}

var displays = map[models.Outcome]Display{
	models.OutcomeMatched:             {Color: ColorGreen, Headline: "Welcome"},
	models.OutcomeAlreadyParticipated: {Color: ColorOrange, Headline: "Already Passed"},
	models.OutcomeWrongGroup:          {Color: ColorWhite, Headline: "Participant belong to another session"},
	models.OutcomeNotFound:            {Color: ColorRed, Headline: "No such participated"},
	models.OutcomeInvalid:             {Color: ColorRed, Headline: "No such participated"},
	models.OutcomeNetworkError:        {Color: ColorRed, Headline: GenericNetworkError},
}

// Classify maps a server message to an outcome by exact match. Anything
// unrecognized is NotFound.
func Classify(message string) models.Outcome {
	switch message {
	case MessageMatched:
		return models.OutcomeMatched
	case MessageAlreadyParticipated:
		return models.OutcomeAlreadyParticipated
	case MessageWrongGroup:
		return models.OutcomeWrongGroup
	default:
		return models.OutcomeNotFound
	}
}

// Present returns the display for an outcome. For NetworkError the server
// message, when there is one, replaces the generic headline.
func Present(outcome models.Outcome, serverMessage string) Display {
	d, ok := displays[outcome]
	if !ok {
		d = displays[models.OutcomeNotFound]
	}
	d.Outcome = outcome
	if outcome == models.OutcomeNetworkError && serverMessage != "" {
		d.Headline = serverMessage
	}
	return d
}
