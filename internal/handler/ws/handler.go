// Package ws owns the chat socket: handshake, authorization, the
// per-connection state machine and the generation relay.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
	"github.com/lumenchat/lumen/backend/internal/model/wire"
	"github.com/lumenchat/lumen/backend/internal/service/generation"
	"github.com/lumenchat/lumen/backend/internal/session"
	"github.com/lumenchat/lumen/backend/internal/store"
)

// Protocol close codes.
const (
	CloseAuthFailed   = 1008
	CloseAccessDenied = 1003
	CloseInternal     = 1011
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// connState is the protocol phase of one connection.
type connState int

const (
	stateConnecting connState = iota
	stateAuthenticating
	stateHistoryLoad
	stateIdle
	stateAwaitingGeneration
	stateClosed
)

// TokenValidator resolves a bearer credential to an identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (chat.Identity, error)
}

// TurnStore is the durable collaborator of a connection.
type TurnStore interface {
	GetConversation(ctx context.Context, id string) (chat.Conversation, error)
	LoadHistory(ctx context.Context, conversationID string) ([]chat.Turn, error)
	AppendTurn(ctx context.Context, conversationID, role, content string, createdAt time.Time) (int64, error)
}

// PromptBuilder assembles the generation prompt for one query.
type PromptBuilder interface {
	BuildPrompt(ctx context.Context, conversationID, query string, history []chat.TurnView) []*schema.Message
}

// Handler runs the chat socket protocol.
type Handler struct {
	validator   TokenValidator
	store       TurnStore
	prompts     PromptBuilder
	generator   generation.Streamer
	authTimeout time.Duration
	upgrader    websocket.Upgrader
}

// New wires the socket handler to its collaborators.
func New(validator TokenValidator, turnStore TurnStore, prompts PromptBuilder, generator generation.Streamer, authTimeout time.Duration) *Handler {
	return &Handler{
		validator:   validator,
		store:       turnStore,
		prompts:     prompts,
		generator:   generator,
		authTimeout: authTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the chat socket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{conversationID}", h.handleSocket)
}

// connection is the per-socket state.
type connection struct {
	conn           *websocket.Conn
	conversationID string
	identity       chat.Identity
	state          connState
	history        *session.State
}

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		http.Error(w, "conversationID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{conn: conn, conversationID: conversationID, state: stateConnecting}

	if err := h.authorize(ctx, c); err != nil {
		log.Printf("[ws] authorization failed conversation=%s: %v", conversationID, err)
		return
	}

	if err := h.sendHistory(ctx, c); err != nil {
		log.Printf("[ws] history load failed conversation=%s: %v", conversationID, err)
		return
	}

	log.Printf("[ws] session open conversation=%s user=%s", conversationID, c.identity.Username)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	go h.pingLoop(ctx, conn)

	h.loop(ctx, c)
}

// authorize waits for the auth frame within the handshake timeout, validates
// the credential and checks conversation ownership. On failure the socket is
// closed with the protocol close code; storage is never mutated here.
func (h *Handler) authorize(ctx context.Context, c *connection) error {
	c.state = stateAuthenticating
	c.conn.SetReadDeadline(time.Now().Add(h.authTimeout))

	var frame wire.ClientFrame
	if err := c.conn.ReadJSON(&frame); err != nil {
		h.closeWith(c, CloseAuthFailed, "authentication required")
		return fmt.Errorf("read auth frame: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	if frame.Type != wire.TypeAuth {
		h.closeWith(c, CloseAuthFailed, "authentication required")
		return errors.New("first frame is not an auth frame")
	}
	if err := frame.Validate(); err != nil {
		h.closeWith(c, CloseAuthFailed, "authentication required")
		return fmt.Errorf("invalid auth frame: %w", err)
	}

	identity, err := h.validator.ValidateToken(ctx, frame.Token)
	if err != nil {
		h.closeWith(c, CloseAuthFailed, "invalid credentials")
		return fmt.Errorf("validate token: %w", err)
	}

	conv, err := h.store.GetConversation(ctx, c.conversationID)
	if errors.Is(err, store.ErrConversationNotFound) {
		h.closeWith(c, CloseAccessDenied, "conversation not found")
		return err
	}
	if err != nil {
		h.closeWith(c, CloseInternal, "internal error")
		return fmt.Errorf("resolve conversation: %w", err)
	}

	if conv.UserID != identity.ID {
		h.closeWith(c, CloseAccessDenied, "access denied")
		return errors.New("conversation not owned by identity")
	}

	c.identity = identity
	c.state = stateHistoryLoad
	return nil
}

// sendHistory seeds the session view from durable storage and sends the
// transcript to the client, once, before any stream activity.
func (h *Handler) sendHistory(ctx context.Context, c *connection) error {
	turns, err := h.store.LoadHistory(ctx, c.conversationID)
	if err != nil {
		h.closeWith(c, CloseInternal, "internal error")
		return err
	}

	views := make([]chat.TurnView, 0, len(turns))
	for _, turn := range turns {
		views = append(views, turn.View())
	}
	c.history = session.Seed(views)

	if err := c.conn.WriteJSON(wire.NewHistory(views)); err != nil {
		h.closeWith(c, CloseInternal, "internal error")
		return fmt.Errorf("send history: %w", err)
	}

	c.state = stateIdle
	return nil
}

// loop is the steady state: one exchange at a time, nothing read from the
// client while a generation is in flight.
func (h *Handler) loop(ctx context.Context, c *connection) {
	for {
		var frame wire.ClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read failed conversation=%s: %v", c.conversationID, err)
			}
			c.state = stateClosed
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if frame.Type != wire.TypeMessage {
			h.sendError(c, "unsupported frame type")
			continue
		}

		query := strings.TrimSpace(frame.Message)
		if query == "" {
			// Whitespace-only input: stay idle, no side effects.
			continue
		}

		c.state = stateAwaitingGeneration
		h.exchange(ctx, c, query)
		c.state = stateIdle
	}
}

// exchange runs one user/assistant turn pair. Every failure in here is
// turn-scoped: the client gets an error frame and the connection stays open
// for the next message.
func (h *Handler) exchange(ctx context.Context, c *connection, query string) {
	// Prompt history is the view before the current query; the query itself
	// always goes in as the final prompt message.
	history := c.history.Snapshot()

	if _, err := h.store.AppendTurn(ctx, c.conversationID, chat.RoleUser, query, time.Now().UTC()); err != nil {
		log.Printf("[ws] persist user turn failed conversation=%s: %v", c.conversationID, err)
		h.sendError(c, "failed to save message")
		return
	}
	c.history.Append(chat.TurnView{Role: chat.RoleUser, Content: query})

	promptMessages := h.prompts.BuildPrompt(ctx, c.conversationID, query, history)

	reply, err := h.relay(ctx, c, promptMessages)
	if err != nil {
		// The user turn stays persisted; the client was told via an error
		// frame and may resend.
		log.Printf("[ws] generation failed conversation=%s: %v", c.conversationID, err)
		return
	}
	if reply == "" {
		return
	}

	if _, err := h.store.AppendTurn(ctx, c.conversationID, chat.RoleAssistant, reply, time.Now().UTC()); err != nil {
		log.Printf("[ws] persist assistant turn failed conversation=%s: %v", c.conversationID, err)
		h.sendError(c, "failed to save reply")
		return
	}
	c.history.Append(chat.TurnView{Role: chat.RoleAssistant, Content: reply})
}

func (h *Handler) sendError(c *connection, message string) {
	if err := c.conn.WriteJSON(wire.NewError(message)); err != nil {
		log.Printf("[ws] write error frame failed: %v", err)
	}
}

// closeWith sends a close control frame carrying the protocol code.
func (h *Handler) closeWith(c *connection, code int, reason string) {
	deadline := time.Now().Add(writeTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Printf("[ws] write close frame failed: %v", err)
	}
	c.state = stateClosed
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
