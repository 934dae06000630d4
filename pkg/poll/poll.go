package poll

import (
	"fmt"
	"time"
)

type PollId int64

type OptionId int

type SessionId string

type EndReason string

const (
	EndReasonTimeout  EndReason = "timeout"
	EndReasonStopped  EndReason = "stopped"
	EndReasonReplaced EndReason = "replaced"
)

type Option struct {
	Id    OptionId `json:"id"`
	Text  string   `json:"text"`
	Count int      `json:"count"`
}

type Poll struct {
	Id             PollId     `json:"id"`
	Question       string     `json:"question"`
	Options        []Option   `json:"options"`
	CorrectIndices []OptionId `json:"correctIndices"`
	Duration       int        `json:"duration"`
	TimeLeft       int        `json:"timeLeft"`
	IsActive       bool       `json:"isActive"`
	TotalVotes     int        `json:"totalVotes"`

	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	EndReason EndReason  `json:"endReason,omitempty"`
}

// Status is the externally visible state of the coordinator.
type Status struct {
	Poll           *Poll `json:"poll"`
	EligibleVoters int   `json:"eligibleVoters"`
	HistoryLength  int   `json:"historyLength"`
	LastPoll       *Poll `json:"lastPoll,omitempty"`
}

// Clone returns a deep copy of the poll; archived and broadcast snapshots
// never share memory with the live poll.
func (p *Poll) Clone() *Poll {
	p2 := *p

	p2.Options = make([]Option, len(p.Options))
	copy(p2.Options, p.Options)

	p2.CorrectIndices = make([]OptionId, len(p.CorrectIndices))
	copy(p2.CorrectIndices, p.CorrectIndices)

	if p.EndedAt != nil {
		endedAt := *p.EndedAt
		p2.EndedAt = &endedAt
	}

	return &p2
}

func (p *Poll) option(id OptionId) *Option {
	if id < 0 || int(id) >= len(p.Options) {
		return nil
	}

	return &p.Options[id]
}

// Vote increments the count of an option and the total vote count
// together. It returns false if the poll is not active or if the option
// does not exist.
func (p *Poll) Vote(id OptionId) bool {
	if !p.IsActive {
		return false
	}

	option := p.option(id)
	if option == nil {
		return false
	}

	option.Count++
	p.TotalVotes++

	return true
}

func (p *Poll) CheckTally() error {
	sum := 0
	for _, option := range p.Options {
		sum += option.Count
	}

	if sum != p.TotalVotes {
		return fmt.Errorf("poll %d has %d total votes but options sum to %d",
			p.Id, p.TotalVotes, sum)
	}

	return nil
}

func (p *Poll) String() string {
	state := "active"
	if !p.IsActive {
		state = "ended"
	}

	return fmt.Sprintf("Poll{id: %d, %s, %d options, %d votes, "+
		"timeLeft: %d}", p.Id, state, len(p.Options), p.TotalVotes, p.TimeLeft)
}
