package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/galdor/go-livepoll/pkg/poll"
	"golang.org/x/net/websocket"
)

// PollService is the part of the poll coordinator driven by websocket
// clients.
type PollService interface {
	CreatePoll(context.Context, poll.PollRequest) (poll.Poll, error)
	StopPoll(context.Context) (poll.Poll, bool, error)
	SubmitVote(context.Context, poll.OptionId) (bool, error)
	RequestHistory(context.Context, poll.SessionId) error
	Join(context.Context, poll.SessionId) error
}

type HubCfg struct {
	Address string

	Logger poll.Logger

	QueueSize       int
	MaxFrameSize    int
	MaxMessageSize  int
	MaxDecodeErrors int
}

// Hub accepts websocket sessions, relays their commands to the poll
// service and fans out events. It implements poll.Broadcaster.
type Hub struct {
	Cfg HubCfg
	Log poll.Logger

	Registry *Registry
	Polls    PollService

	sessions map[poll.SessionId]*session
	mu       sync.Mutex

	// Serializes participant list snapshots and their broadcast so that
	// the last update_users frame always reflects the latest registry.
	usersMu sync.Mutex

	handler    http.Handler
	httpServer *http.Server

	errorChan chan<- error
}

type errorPayload struct {
	Message string `json:"message"`
}

func NewHub(cfg HubCfg) (*Hub, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("missing logger")
	}

	if cfg.QueueSize == 0 {
		cfg.QueueSize = 64
	}

	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = 16 * 1024
	}

	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 4 * 1024
	}

	if cfg.MaxDecodeErrors == 0 {
		cfg.MaxDecodeErrors = 5
	}

	h := &Hub{
		Cfg: cfg,
		Log: cfg.Logger,

		Registry: NewRegistry(),

		sessions: make(map[poll.SessionId]*session),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/up", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("/ws", websocket.Server{
		Handler:   websocket.Handler(h.handleConn),
		Handshake: acceptOrigin,
	})

	h.handler = mux

	return h, nil
}

func (h *Hub) Broadcast(ev poll.Event) {
	data, err := poll.EncodeEvent(ev)
	if err != nil {
		h.Log.Error("cannot encode %v: %v", ev, err)
		return
	}

	h.broadcastData(data)
}

func (h *Hub) SendTo(id poll.SessionId, ev poll.Event) {
	data, err := poll.EncodeEvent(ev)
	if err != nil {
		h.Log.Error("cannot encode %v: %v", ev, err)
		return
	}

	if s := h.session(id); s != nil {
		h.sendData(s, data)
	}
}

func (h *Hub) EligibleVoters() int {
	return h.Registry.EligibleVoters()
}

// Kick disconnects a session and removes its participant. It returns false
// if the session does not exist.
func (h *Hub) Kick(id poll.SessionId) bool {
	s := h.session(id)
	if s != nil {
		if data, err := EncodeFrame(FrameTypeKicked, nil); err == nil {
			s.send(data)
		}

		s.close()
	}

	if p, found := h.Registry.Get(id); found && h.Registry.Leave(id) {
		h.Log.Info("%s %q (session %s) kicked", p.Role, p.Name, id)
		h.broadcastUsers()
	}

	return s != nil
}

func (h *Hub) NbSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.sessions)
}

func (h *Hub) session(id poll.SessionId) *session {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.sessions[id]
}

func (h *Hub) addSession(s *session) {
	h.mu.Lock()
	h.sessions[s.Id] = s
	h.mu.Unlock()
}

func (h *Hub) removeSession(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.Id)
	h.mu.Unlock()

	if h.Registry.Leave(s.Id) {
		h.broadcastUsers()
	}
}

func (h *Hub) closeSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		s.close()
	}
}

func (h *Hub) broadcastData(data []byte) {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		h.sendData(s, data)
	}
}

func (h *Hub) sendData(s *session, data []byte) {
	if !s.send(data) {
		// The client cannot keep up; it will have to reconnect.
		h.Log.Error("closing session %s: outbound queue full", s.Id)
		s.close()
	}
}

func (h *Hub) broadcastUsers() {
	h.usersMu.Lock()
	defer h.usersMu.Unlock()

	data, err := EncodeFrame(FrameTypeUpdateUsers, h.Registry.List())
	if err != nil {
		h.Log.Error("cannot encode participants: %v", err)
		return
	}

	h.broadcastData(data)
}

func (h *Hub) sendError(s *session, cause error) {
	data, err := EncodeFrame(FrameTypeError, errorPayload{Message: cause.Error()})
	if err != nil {
		h.Log.Error("cannot encode error: %v", err)
		return
	}

	h.sendData(s, data)
}

func (h *Hub) handleFrame(ctx context.Context, s *session, frame Frame) error {
	cmd, err := DecodeCmd(frame)
	if err != nil {
		return err
	}

	h.Log.Debug(2, "session %s: %s", s.Id, cmd.CmdName())

	switch c := cmd.(type) {
	case *CmdJoinUser:
		h.onJoinUser(ctx, s, c)

	case *CmdCreatePoll:
		_, err = h.Polls.CreatePoll(ctx, c.PollRequest)
		if errors.Is(err, poll.ErrInvalidPoll) {
			h.sendError(s, err)
			err = nil
		}

	case *CmdStopPoll:
		_, _, err = h.Polls.StopPoll(ctx)

	case *CmdSubmitVote:
		_, err = h.Polls.SubmitVote(ctx, c.OptionId)

	case *CmdGetHistory:
		err = h.Polls.RequestHistory(ctx, s.Id)

	case *CmdSendMessage:
		h.onSendMessage(s, c)

	case *CmdKickUser:
		if !h.Kick(c.SessionId) {
			h.Log.Debug(1, "cannot kick unknown session %s", c.SessionId)
		}
	}

	if err != nil {
		h.Log.Error("cannot execute %s for session %s: %v", cmd.CmdName(), s.Id, err)
	}

	return nil
}

func (h *Hub) onJoinUser(ctx context.Context, s *session, cmd *CmdJoinUser) {
	participant := Participant{
		Id:   s.Id,
		Name: cmd.Name,
		Role: cmd.Role,
	}

	if err := participant.Validate(); err != nil {
		h.sendError(s, fmt.Errorf("invalid participant: %w", err))
		return
	}

	h.Registry.Join(participant)

	h.Log.Info("%s %q joined as session %s",
		participant.Role, participant.Name, s.Id)

	h.broadcastUsers()

	if err := h.Polls.Join(ctx, s.Id); err != nil {
		h.Log.Error("cannot send current poll to session %s: %v", s.Id, err)
	}
}

func (h *Hub) onSendMessage(s *session, cmd *CmdSendMessage) {
	if len(cmd.Message) > h.Cfg.MaxMessageSize {
		h.Log.Debug(1, "dropping %d byte message from session %s",
			len(cmd.Message), s.Id)
		return
	}

	data, err := json.Marshal(Frame{
		Type:    FrameTypeReceiveMessage,
		Payload: cmd.Message,
	})
	if err != nil {
		h.Log.Error("cannot encode message: %v", err)
		return
	}

	h.broadcastData(data)
}
