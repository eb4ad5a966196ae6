// Package roster holds the participant roster of the open session or event.
package roster

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"checkin-companion/internal/models"
)

// Store is the authoritative roster. Filtering reads from the backing
// snapshot and never writes to it.
type Store struct {
	mu       sync.RWMutex
	snapshot models.RosterSnapshot
	loaded   bool
	query    string
}

// NewStore creates an empty roster store
func NewStore() *Store {
	return &Store{}
}

// Replace swaps the whole snapshot. The current search is recomputed from the
// new data on the next read.
func (s *Store) Replace(snapshot models.RosterSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snapshot
	s.loaded = true
}

// Clear discards the snapshot, as when leaving the screen
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = models.RosterSnapshot{}
	s.loaded = false
	s.query = ""
}

// Loaded reports whether a snapshot has been stored
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Snapshot returns a copy of the current snapshot
func (s *Store) Snapshot() models.RosterSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.RosterSnapshot{
		Participants:  clone(s.snapshot.Participants),
		Attended:      clone(s.snapshot.Attended),
		AttendedCount: s.snapshot.AttendedCount,
		TotalCount:    s.snapshot.TotalCount,
	}
}

// Filter sets the search query and returns the matching participants in
// backing order. A blank query returns the full list.
func (s *Store) Filter(query string) []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	return s.filterLocked(query)
}

// Query returns the active search query
func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// View returns the active search result in render order
func (s *Store) View() []models.Participant {
	s.mu.RLock()
	result := s.filterLocked(s.query)
	s.mu.RUnlock()

	Sort(result)
	return result
}

func (s *Store) filterLocked(query string) []models.Participant {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return clone(s.snapshot.Participants)
	}

	fold := cases.Fold()
	needle = fold.String(needle)
	result := make([]models.Participant, 0)
	for _, p := range s.snapshot.Participants {
		if strings.Contains(fold.String(p.FullName), needle) {
			result = append(result, p)
		}
	}
	return result
}

// Patch replaces the participant with the same id. Unknown ids are ignored.
func (s *Store) Patch(p models.Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i, existing := range s.snapshot.Participants {
		if existing.ID == p.ID {
			s.snapshot.Participants[i] = p
			found = true
			break
		}
	}
	if !found {
		return false
	}

	attended := make([]models.Participant, 0, len(s.snapshot.Attended)+1)
	for _, a := range s.snapshot.Attended {
		if a.ID != p.ID {
			attended = append(attended, a)
		}
	}
	if p.IsVisited {
		attended = append(attended, p)
	}
	s.snapshot.Attended = attended
	s.snapshot.AttendedCount = len(attended)
	s.snapshot.TotalCount = len(s.snapshot.Participants)
	return true
}

// FindByEmail looks up a participant by email, ignoring case
func (s *Store) FindByEmail(email string) (models.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.snapshot.Participants {
		if strings.EqualFold(p.Email, email) {
			return p, true
		}
	}
	return models.Participant{}, false
}

// FindByID looks up a participant by id
func (s *Store) FindByID(id int64) (models.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.snapshot.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}

func clone(participants []models.Participant) []models.Participant {
	result := make([]models.Participant, len(participants))
	copy(result, participants)
	return result
}
