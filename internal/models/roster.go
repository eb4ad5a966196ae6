package models

// RosterPayload is the authoritative participant data returned by a reload
type RosterPayload struct {
	Participants []Participant
	Attended     []Participant
}

// RosterSnapshot is the roster currently held for one session or event.
// AttendedCount and TotalCount are derived from the lists, never tracked apart.
type RosterSnapshot struct {
	Participants  []Participant
	Attended      []Participant
	AttendedCount int
	TotalCount    int
}

// NewRosterSnapshot builds a snapshot whose counts come from the payload lists
func NewRosterSnapshot(payload RosterPayload) RosterSnapshot {
	participants := make([]Participant, len(payload.Participants))
	copy(participants, payload.Participants)
	attended := make([]Participant, len(payload.Attended))
	copy(attended, payload.Attended)
	return RosterSnapshot{
		Participants:  participants,
		Attended:      attended,
		AttendedCount: len(attended),
		TotalCount:    len(participants),
	}
}

// VisitedOnly returns the participants flagged as visited
func VisitedOnly(participants []Participant) []Participant {
	result := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.IsVisited {
			result = append(result, p)
		}
	}
	return result
}
