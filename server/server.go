// Package server exposes the guardian over WebSocket for the dashboard:
// chat messages run the agent, command messages dispatch the three
// operations directly.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/defiguardian/guardian/agent"
	"github.com/defiguardian/guardian/core"
	"github.com/defiguardian/guardian/engine"
)

const defaultCommandTimeout = 60 * time.Second

// Server handles dashboard WebSocket sessions.
type Server struct {
	engine   *engine.Engine
	deps     *agent.Deps
	upgrader websocket.Upgrader
}

// New creates a server over the given engine and tool dependencies.
func New(eng *engine.Engine, deps *agent.Deps) *Server {
	return &Server{
		engine: eng,
		deps:   deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The dashboard is served locally; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler, also used by tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe serves until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("[SERVER] listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// session is one WebSocket connection. Writes go through a mutex so stream
// chunks and results never interleave mid-frame.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	userID  string
	history []core.Message
}

func (c *session) write(msg *ServerMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = "anonymous"
	}
	sess := &session{conn: conn, userID: userID}
	log.Printf("[SERVER] session open user=%s remote=%s", userID, r.RemoteAddr)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SERVER] read failed user=%s: %v", userID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sess.write(errorMessage(fmt.Errorf("invalid message: %w", err)))
			continue
		}

		s.handleMessage(r.Context(), sess, &msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, sess *session, msg *ClientMessage) {
	switch msg.Type {
	case "command":
		s.dispatchCommand(ctx, sess, msg)

	case "chat":
		// Tagged command strings skip the model round-trip.
		if cmd, ok := ParseTaggedCommand(msg.Text); ok {
			s.dispatchCommand(ctx, sess, cmd)
			return
		}
		s.runChat(ctx, sess, msg.Text)

	default:
		sess.write(errorMessage(fmt.Errorf("unknown message type %q", msg.Type)))
	}
}

// dispatchCommand runs one operation directly against the domain services.
func (s *Server) dispatchCommand(ctx context.Context, sess *session, msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	var payload interface{}
	var err error

	switch msg.Command {
	case CommandAssessRisk:
		if len(msg.Portfolio) == 0 {
			sess.write(errorMessage(fmt.Errorf("invalid input: portfolio is empty")))
			return
		}
		payload, err = s.deps.Risk.AssessPortfolioRisk(ctx, msg.Portfolio)

	case CommandFindPools:
		minAPR := 0.2
		if msg.MinAPR != nil {
			minAPR = *msg.MinAPR
		}
		payload, err = s.deps.Pools.FindLiquidityPools(ctx, minAPR)

	case CommandGetMetrics:
		if msg.Symbol == "" {
			sess.write(errorMessage(fmt.Errorf("invalid input: symbol is required")))
			return
		}
		payload, err = s.deps.Metrics.TokenMetrics(ctx, msg.Symbol)

	default:
		sess.write(errorMessage(fmt.Errorf("unknown command %q", msg.Command)))
		return
	}

	if err != nil {
		log.Printf("[SERVER] command %s failed user=%s: %v", msg.Command, sess.userID, err)
		sess.write(errorMessage(err))
		return
	}

	result, err := resultMessage(payload)
	if err != nil {
		sess.write(errorMessage(err))
		return
	}
	sess.write(result)
}

// runChat runs the agent over the session history, streaming chunks.
func (s *Server) runChat(ctx context.Context, sess *session, text string) {
	output, err := s.engine.Run(ctx, &engine.Input{
		UserMessage:  text,
		SystemPrompt: agent.SystemPrompt,
		Context: &core.Context{
			UserID:         sess.userID,
			ConversationID: sess.userID,
		},
		History: sess.history,
		StreamCallback: func(chunk string, done bool) {
			if chunk != "" {
				sess.write(&ServerMessage{Type: "chunk", Text: chunk})
			}
		},
	})
	if err != nil {
		sess.write(errorMessage(fmt.Errorf("agent run failed: %w", err)))
		return
	}
	if output.Type == engine.OutputError {
		sess.write(errorMessage(output.Error))
		return
	}

	sess.history = append(sess.history,
		core.Message{Role: "user", Blocks: []core.ContentBlock{core.NewTextBlock(text)}},
		core.Message{Role: "assistant", Blocks: []core.ContentBlock{core.NewTextBlock(output.Text)}},
	)

	sess.write(&ServerMessage{Type: "result", Text: output.Text})
}
