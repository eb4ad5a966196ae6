package roster

import (
	"sort"

	"checkin-companion/internal/models"
)

// Sort orders participants for display: visited first, then most recently
// updated first within each group.
func Sort(participants []models.Participant) {
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.IsVisited != b.IsVisited {
			return bool(a.IsVisited)
		}
		return a.UpdatedAt.After(b.UpdatedAt.Time)
	})
}
