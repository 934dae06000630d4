package poll

import (
	"encoding/json"
	"fmt"
)

const (
	EventTypeNewPoll       = "new_poll"
	EventTypeTimerUpdate   = "timer_update"
	EventTypeUpdateResults = "update_results"
	EventTypePollEnded     = "poll_ended"
	EventTypeHistoryData   = "history_data"
)

// Event is a notification emitted by the coordinator. The payload is what
// clients receive on the wire.
type Event interface {
	GetType() string
	GetPayload() interface{}

	fmt.Stringer
}

type Broadcaster interface {
	Broadcast(Event)
	SendTo(SessionId, Event)
}

type VoterCounter interface {
	EligibleVoters() int
}

type EventNewPoll struct {
	Poll *Poll
}

func (ev *EventNewPoll) GetType() string {
	return EventTypeNewPoll
}

func (ev *EventNewPoll) GetPayload() interface{} {
	return ev.Poll
}

func (ev *EventNewPoll) String() string {
	return fmt.Sprintf("NewPoll{%v}", ev.Poll)
}

type EventTimerUpdate struct {
	TimeLeft int
}

func (ev *EventTimerUpdate) GetType() string {
	return EventTypeTimerUpdate
}

func (ev *EventTimerUpdate) GetPayload() interface{} {
	return ev.TimeLeft
}

func (ev *EventTimerUpdate) String() string {
	return fmt.Sprintf("TimerUpdate{timeLeft: %d}", ev.TimeLeft)
}

type EventUpdateResults struct {
	Poll *Poll
}

func (ev *EventUpdateResults) GetType() string {
	return EventTypeUpdateResults
}

func (ev *EventUpdateResults) GetPayload() interface{} {
	return ev.Poll
}

func (ev *EventUpdateResults) String() string {
	return fmt.Sprintf("UpdateResults{%v}", ev.Poll)
}

type EventPollEnded struct {
	Poll *Poll
}

func (ev *EventPollEnded) GetType() string {
	return EventTypePollEnded
}

func (ev *EventPollEnded) GetPayload() interface{} {
	return ev.Poll
}

func (ev *EventPollEnded) String() string {
	return fmt.Sprintf("PollEnded{%v, reason: %s}", ev.Poll, ev.Poll.EndReason)
}

type EventHistoryData struct {
	Polls []Poll
}

func (ev *EventHistoryData) GetType() string {
	return EventTypeHistoryData
}

func (ev *EventHistoryData) GetPayload() interface{} {
	return ev.Polls
}

func (ev *EventHistoryData) String() string {
	return fmt.Sprintf("HistoryData{%d polls}", len(ev.Polls))
}

// EncodeEvent produces the wire frame of an event.
func EncodeEvent(ev Event) ([]byte, error) {
	value := struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}{
		Type:    ev.GetType(),
		Payload: ev.GetPayload(),
	}

	return json.Marshal(value)
}
