package hub

import (
	"sync"
	"time"

	"github.com/galdor/go-livepoll/pkg/poll"
	"golang.org/x/net/websocket"
)

const writeTimeout = 10 * time.Second

// session is a websocket connection. Frames are written by a dedicated
// goroutine so that broadcasting never waits for a slow client.
type session struct {
	Id poll.SessionId

	conn *websocket.Conn
	log  poll.Logger

	sendChan chan []byte
	closed   bool
	mu       sync.Mutex

	writerDone chan struct{}
}

func newSession(id poll.SessionId, conn *websocket.Conn, queueSize int, log poll.Logger) *session {
	return &session{
		Id: id,

		conn: conn,
		log:  log,

		sendChan:   make(chan []byte, queueSize),
		writerDone: make(chan struct{}),
	}
}

// send queues a frame and returns false if the session is closed or if
// its queue is full.
func (s *session) send(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.sendChan <- data:
		return true
	default:
		return false
	}
}

// close stops the session once queued frames have been written.
func (s *session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.sendChan)
	}
	s.mu.Unlock()
}

func (s *session) writeLoop() {
	defer close(s.writerDone)
	defer s.conn.Close()

	defer func() {
		if value := recover(); value != nil {
			poll.PanicError(s.log, value)
		}
	}()

	for data := range s.sendChan {
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if _, err := s.conn.Write(data); err != nil {
			s.log.Debug(1, "cannot write to session %s: %v", s.Id, err)
			s.close()
			return
		}
	}
}
