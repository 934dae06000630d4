package hub

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/galdor/go-livepoll/pkg/poll"
)

const MaxParticipantNameLength = 64

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type Participant struct {
	Id   poll.SessionId `json:"id"`
	Name string         `json:"name"`
	Role Role           `json:"role"`
}

func (p *Participant) Validate() error {
	p.Name = strings.TrimSpace(p.Name)

	if p.Name == "" {
		return fmt.Errorf("missing or empty name")
	}

	if utf8.RuneCountInString(p.Name) > MaxParticipantNameLength {
		return fmt.Errorf("name cannot be longer than %d characters",
			MaxParticipantNameLength)
	}

	switch p.Role {
	case RoleTeacher, RoleStudent:
	default:
		return fmt.Errorf("invalid role %q", p.Role)
	}

	return nil
}

// Registry is the list of participants which joined, in joining order.
type Registry struct {
	participants []Participant

	mu sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make([]Participant, 0),
	}
}

// Join adds a participant, replacing any previous entry for the same
// session.
func (r *Registry) Join(p Participant) {
	r.mu.Lock()
	r.participants = append(r.remove(p.Id), p)
	r.mu.Unlock()
}

// Leave removes a participant and returns false if it was not registered.
func (r *Registry) Leave(id poll.SessionId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	nbParticipants := len(r.participants)
	r.participants = r.remove(id)

	return len(r.participants) < nbParticipants
}

func (r *Registry) remove(id poll.SessionId) []Participant {
	participants := r.participants[:0]

	for _, p := range r.participants {
		if p.Id != id {
			participants = append(participants, p)
		}
	}

	return participants
}

func (r *Registry) Get(id poll.SessionId) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.participants {
		if p.Id == id {
			return p, true
		}
	}

	return Participant{}, false
}

func (r *Registry) List() []Participant {
	r.mu.RLock()
	participants := make([]Participant, len(r.participants))
	copy(participants, r.participants)
	r.mu.RUnlock()

	return participants
}

// EligibleVoters returns the number of students.
func (r *Registry) EligibleVoters() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.participants {
		if p.Role == RoleStudent {
			n++
		}
	}

	return n
}
