package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/galdor/go-livepoll/pkg/poll"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

func (h *Hub) Start(errorChan chan<- error) error {
	if h.Polls == nil {
		return fmt.Errorf("missing poll service")
	}

	h.errorChan = errorChan

	listener, err := net.Listen("tcp", h.Cfg.Address)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", h.Cfg.Address, err)
	}

	h.Log.Info("listening on %s", listener.Addr())

	// No write timeout: websocket connections are long-lived and writes are
	// performed by session goroutines.
	h.httpServer = &http.Server{
		Addr:              h.Cfg.Address,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		Handler:           h,
	}

	go func() {
		defer func() {
			if value := recover(); value != nil {
				poll.PanicError(h.Log, value)
			}
		}()

		if err := h.httpServer.Serve(listener); err != http.ErrServerClosed {
			h.errorChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	return nil
}

func (h *Hub) Stop() {
	h.Log.Debug(1, "stopping")

	if h.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		h.httpServer.Shutdown(ctx)
	}

	// Hijacked connections are not tracked by the HTTP server.
	h.closeSessions()

	h.Log.Debug(1, "stopped")
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.handler.ServeHTTP(w, req)
}

func acceptOrigin(cfg *websocket.Config, req *http.Request) error {
	// Clients are served from any origin; participants are trusted by
	// convention.
	origin, err := websocket.Origin(cfg, req)
	if err == nil {
		cfg.Origin = origin
	}

	return nil
}

func (h *Hub) handleConn(conn *websocket.Conn) {
	conn.MaxPayloadBytes = h.Cfg.MaxFrameSize

	id := poll.SessionId(uuid.NewString())

	s := newSession(id, conn, h.Cfg.QueueSize, h.Log)
	h.addSession(s)

	go s.writeLoop()

	h.Log.Debug(1, "session %s connected from %s", id, conn.Request().RemoteAddr)

	defer func() {
		h.removeSession(s)
		s.close()
		<-s.writerDone

		h.Log.Debug(1, "session %s disconnected", id)
	}()

	ctx := conn.Request().Context()

	nbDecodeErrors := 0

	for {
		var data []byte

		if err := websocket.Message.Receive(conn, &data); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				h.Log.Debug(1, "session %s: frame too large", id)
			} else {
				if !errors.Is(err, io.EOF) {
					h.Log.Debug(1, "cannot read from session %s: %v", id, err)
				}

				return
			}
		} else {
			err = h.handleMessage(ctx, s, data)
			if err == nil {
				nbDecodeErrors = 0
				continue
			}

			h.Log.Debug(1, "session %s: %v", id, err)
		}

		nbDecodeErrors++
		if nbDecodeErrors >= h.Cfg.MaxDecodeErrors {
			h.Log.Error("closing session %s after %d invalid frames",
				id, nbDecodeErrors)
			return
		}
	}
}

func (h *Hub) handleMessage(ctx context.Context, s *session, data []byte) error {
	frame, err := DecodeFrame(data)
	if err != nil {
		return err
	}

	return h.handleFrame(ctx, s, frame)
}
