package followup

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

var (
	// errors
	ErrIgnoreExists   = errors.New("follow-up is already ignored for this person")
	ErrIgnoreNotFound = errors.New("ignore entry not found")
)

// Options parameterizes one follow-up computation.
type Options struct {
	LookbackWeeks  int           `json:"lookbackWeeks" validate:"gte=1,lte=104"`
	MinConsecutive int           `json:"minConsecutive" validate:"gte=1,ltefield=LookbackWeeks"`
	ReferenceDate  calendar.Date `json:"date"`
}

// Member is a person in a follow-up group, with the context needed to reach out.
type Member struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Phone          string         `json:"phone"`
	ParentName     string         `json:"parentName,omitempty"`
	Class          *person.Class  `json:"class,omitempty"`
	LastAttendance *calendar.Date `json:"lastAttendance"`
	Notes          string         `json:"notes"`
}

// Group holds the people with exactly ConsecutiveWeeks consecutive absences.
type Group struct {
	ConsecutiveWeeks int
	Count            int
	PersonType       person.Type
	Members          []Member
}

// MarshalJSON keys the members by population: {"consecutiveWeeks", "count", "children"|"servants"}.
func (g Group) MarshalJSON() ([]byte, error) {
	members := g.Members
	if members == nil {
		members = []Member{}
	}
	return json.Marshal(map[string]interface{}{
		"consecutiveWeeks":     g.ConsecutiveWeeks,
		"count":                g.Count,
		g.PersonType.Plural(): members,
	})
}

type Summary struct {
	PersonType  person.Type
	Total       int
	GroupsCount int
}

// MarshalJSON names the total after the population: totalFollowUpChildren or totalFollowUpServants.
func (s Summary) MarshalJSON() ([]byte, error) {
	totalKey := "totalFollowUpChildren"
	if s.PersonType == person.TypeServant {
		totalKey = "totalFollowUpServants"
	}
	return json.Marshal(map[string]interface{}{
		totalKey:      s.Total,
		"groupsCount": s.GroupsCount,
	})
}

// Report is the follow-up list of one population.
// Groups are ordered by ConsecutiveWeeks, longest absence first.
type Report struct {
	Summary       Summary       `json:"summary"`
	Groups        []Group       `json:"groups"`
	ServiceWeek   calendar.Date `json:"serviceWeek"`
	LookbackWeeks int           `json:"lookbackWeeks"`
}

// IgnoreEntry excludes a person from follow-up lists until removed or expired.
type IgnoreEntry struct {
	ID        string    `json:"id"`
	PersonID  string    `json:"personId"`
	IgnoredBy string    `json:"ignoredBy"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt null.Time `json:"expiresAt"`
}

// IsActive reports whether the entry still excludes its person at t.
func (e IgnoreEntry) IsActive(t time.Time) bool {
	return !e.ExpiresAt.Valid || e.ExpiresAt.Time.After(t)
}

// NewIgnore contains the information needed to ignore a person.
// ExpiresAt is not read from requests: entries made over HTTP stand until removed.
type NewIgnore struct {
	PersonID  string    `json:"personId" validate:"required"`
	ExpiresAt null.Time `json:"-"`
}
