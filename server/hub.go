package server

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/notargets/slopefem/analysis"
)

// Message types.
const (
	TypeSolve   = "solve"
	TypeCancel  = "cancel"
	TypeStarted = "started"
	TypeResult  = "result"
	TypeError   = "error"
)

// Request is a message from the peer.
type Request struct {
	Type    string            `json:"type"`
	Problem *analysis.Problem `json:"problem,omitempty"`
}

// Response is a message to the peer.
type Response struct {
	Type    string           `json:"type"`
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Result  *analysis.Result `json:"result,omitempty"`
}

// hub serves one connection. At most one analysis runs at a time.
type hub struct {
	conn   *websocket.Conn
	opts   analysis.Options
	logger log.FieldLogger
	out    chan Response

	wg      sync.WaitGroup
	mu      sync.Mutex
	running context.CancelFunc
}

func newHub(conn *websocket.Conn, opts analysis.Options, logger log.FieldLogger) *hub {
	opts.Logger = logger
	return &hub{
		conn:   conn,
		opts:   opts,
		logger: logger,
		out:    make(chan Response, 8),
	}
}

// handleRequest reads until the connection fails, then waits for the running
// analysis and closes the response channel.
func (h *hub) handleRequest(ctx context.Context) {
	defer func() {
		h.cancel()
		h.wg.Wait()
		close(h.out)
	}()
	for {
		var req Request
		if err := h.conn.ReadJSON(&req); err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				h.logger.WithError(err).Debug("read failed")
			}
			return
		}
		switch req.Type {
		case TypeSolve:
			h.solve(ctx, req.Problem)
		case TypeCancel:
			if !h.cancel() {
				h.out <- Response{Type: TypeError, Message: "no analysis running"}
			}
		default:
			h.out <- Response{Type: TypeError, Message: "unknown message type " + req.Type}
		}
	}
}

func (h *hub) solve(ctx context.Context, p *analysis.Problem) {
	if p == nil {
		h.out <- Response{Type: TypeError, Message: "solve request carries no problem"}
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running != nil {
		h.out <- Response{Type: TypeError, Message: "analysis already running"}
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	h.running = cancel
	h.out <- Response{Type: TypeStarted, Success: true}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res, err := analysis.Run(runCtx, p, h.opts)
		h.mu.Lock()
		h.running = nil
		h.mu.Unlock()
		cancel()

		ok, msg := analysis.Summarize(err)
		if !ok {
			h.logger.WithError(err).Warn(msg)
			h.out <- Response{Type: TypeError, Message: msg}
			return
		}
		h.out <- Response{Type: TypeResult, Success: true, Message: msg, Result: res}
	}()
}

// cancel stops the running analysis and reports whether there was one.
func (h *hub) cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running == nil {
		return false
	}
	h.running()
	return true
}

// handleResponse writes responses until handleRequest closes the channel.
func (h *hub) handleResponse() {
	defer h.conn.Close()
	for resp := range h.out {
		if err := h.conn.WriteJSON(resp); err != nil {
			h.logger.WithError(err).Debug("write failed")
		}
	}
}
