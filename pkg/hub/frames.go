package hub

import (
	"encoding/json"
	"fmt"

	"github.com/galdor/go-livepoll/pkg/poll"
)

const (
	FrameTypeUpdateUsers    = "update_users"
	FrameTypeReceiveMessage = "receive_message"
	FrameTypeKicked         = "kicked"
	FrameTypeError          = "error"
)

// Frame is the envelope of every websocket message, in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Cmd interface {
	CmdName() string
}

type CmdJoinUser struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (cmd *CmdJoinUser) CmdName() string {
	return "join_user"
}

type CmdCreatePoll struct {
	poll.PollRequest
}

func (cmd *CmdCreatePoll) CmdName() string {
	return "create_poll"
}

type CmdStopPoll struct{}

func (cmd *CmdStopPoll) CmdName() string {
	return "stop_poll"
}

type CmdSubmitVote struct {
	OptionId poll.OptionId
}

func (cmd *CmdSubmitVote) CmdName() string {
	return "submit_vote"
}

type CmdGetHistory struct{}

func (cmd *CmdGetHistory) CmdName() string {
	return "get_history"
}

type CmdSendMessage struct {
	Message json.RawMessage
}

func (cmd *CmdSendMessage) CmdName() string {
	return "send_message"
}

type CmdKickUser struct {
	SessionId poll.SessionId
}

func (cmd *CmdKickUser) CmdName() string {
	return "kick_user"
}

func DecodeFrame(data []byte) (Frame, error) {
	var frame Frame

	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("cannot decode frame: %w", err)
	}

	if frame.Type == "" {
		return Frame{}, fmt.Errorf("missing or empty frame type")
	}

	return frame, nil
}

func DecodeCmd(frame Frame) (Cmd, error) {
	var cmd Cmd
	var target interface{}

	switch frame.Type {
	case "join_user":
		c := &CmdJoinUser{}
		cmd, target = c, c

	case "create_poll":
		c := &CmdCreatePoll{}
		cmd, target = c, &c.PollRequest

	case "stop_poll":
		return &CmdStopPoll{}, nil

	case "submit_vote":
		c := &CmdSubmitVote{}
		cmd, target = c, &c.OptionId

	case "get_history":
		return &CmdGetHistory{}, nil

	case "send_message":
		if len(frame.Payload) == 0 {
			return nil, fmt.Errorf("missing message")
		}

		return &CmdSendMessage{Message: frame.Payload}, nil

	case "kick_user":
		c := &CmdKickUser{}
		cmd, target = c, &c.SessionId

	default:
		return nil, fmt.Errorf("unknown frame type %q", frame.Type)
	}

	if len(frame.Payload) == 0 {
		return nil, fmt.Errorf("missing payload for %s", frame.Type)
	}

	if err := json.Unmarshal(frame.Payload, target); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", frame.Type, err)
	}

	return cmd, nil
}

func EncodeFrame(frameType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cannot encode %s payload: %w", frameType, err)
	}

	return json.Marshal(Frame{Type: frameType, Payload: data})
}
