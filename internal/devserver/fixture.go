package devserver

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"checkin-companion/internal/models"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the seed data of a dev server
type Fixture struct {
	Sessions     []models.InfoSession `yaml:"sessions"`
	Events       []models.Event       `yaml:"events"`
	Participants []Record             `yaml:"participants"`
}

// Record is a participant with the credentials and registrations the real
// backend keeps server-side
type Record struct {
	ID            int64            `yaml:"id"`
	FullName      string           `yaml:"full_name"`
	Email         string           `yaml:"email"`
	Code          string           `yaml:"code"`
	Image         string           `yaml:"image"`
	Session       int64            `yaml:"session"`
	Events        []int64          `yaml:"events"`
	Visited       bool             `yaml:"visited"`
	VisitedEvents []int64          `yaml:"visited_events"`
	Phone         string           `yaml:"phone"`
	Gender        string           `yaml:"gender"`
	Birthday      string           `yaml:"birthday"`
	City          string           `yaml:"city"`
	CurrentStep   string           `yaml:"current_step"`
	Motivation    string           `yaml:"motivation"`
	UpdatedAt     models.Timestamp `yaml:"updated_at"`
}

// LoadFixture reads a YAML fixture. An empty path loads the embedded one.
func LoadFixture(path string) (Fixture, error) {
	data := defaultFixture
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Fixture{}, fmt.Errorf("failed to read fixture: %w", err)
		}
	}
	return ParseFixture(data)
}

// ParseFixture decodes fixture YAML
func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return f, nil
}

func (r *Record) participant(visited bool) models.Participant {
	return models.Participant{
		ID:        r.ID,
		FullName:  r.FullName,
		Email:     r.Email,
		Image:     r.Image,
		IsVisited: models.Flag(visited),
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *Record) profile() models.Profile {
	return models.Profile{
		Participant: r.participant(r.Visited),
		Phone:       r.Phone,
		Gender:      r.Gender,
		Birthday:    r.Birthday,
		City:        r.City,
		CurrentStep: r.CurrentStep,
		Motivation:  r.Motivation,
	}
}

func (r *Record) inEvent(id int64) bool {
	return containsID(r.Events, id)
}

func (r *Record) visitedEvent(id int64) bool {
	return containsID(r.VisitedEvents, id)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
