// Package wire defines the closed set of frames exchanged over the chat
// socket. Every inbound frame is validated here before any business logic
// runs.
package wire

import (
	"errors"
	"strings"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
)

// Client frame types.
const (
	TypeAuth    = "auth"
	TypeMessage = "message"
)

// Server frame types.
const (
	TypeHistory       = "history"
	TypeStartOfStream = "start_of_stream"
	TypeStream        = "stream"
	TypeEndOfStream   = "end_of_stream"
	TypeError         = "error"
)

var (
	ErrUnknownType  = errors.New("unknown frame type")
	ErrMissingToken = errors.New("auth frame is missing a token")
)

// ClientFrame is a frame received from the client. The first frame of a
// connection must be an auth frame; every later frame must be a message
// frame.
type ClientFrame struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// Validate checks the structural rules for the frame's type.
func (f ClientFrame) Validate() error {
	switch f.Type {
	case TypeAuth:
		if strings.TrimSpace(f.Token) == "" {
			return ErrMissingToken
		}
		return nil
	case TypeMessage:
		return nil
	default:
		return ErrUnknownType
	}
}

// History carries the full durable transcript, sent once right after
// authorization and before any stream activity.
type History struct {
	Type     string          `json:"type"`
	Messages []chat.TurnView `json:"messages"`
}

// NewHistory builds a history frame; Messages is never null on the wire.
func NewHistory(turns []chat.TurnView) History {
	if turns == nil {
		turns = []chat.TurnView{}
	}
	return History{Type: TypeHistory, Messages: turns}
}

// StartOfStream marks the beginning of one generation stream.
type StartOfStream struct {
	Type string `json:"type"`
}

// NewStartOfStream builds the start marker.
func NewStartOfStream() StartOfStream {
	return StartOfStream{Type: TypeStartOfStream}
}

// Stream carries a single non-empty generation delta.
type Stream struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewStream wraps one delta.
func NewStream(delta string) Stream {
	return Stream{Type: TypeStream, Token: delta}
}

// EndOfStream marks clean completion of a generation stream. It is never
// sent after a mid-stream failure.
type EndOfStream struct {
	Type string `json:"type"`
}

// NewEndOfStream builds the end marker.
func NewEndOfStream() EndOfStream {
	return EndOfStream{Type: TypeEndOfStream}
}

// Error reports a turn-scoped failure without closing the connection.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError wraps a failure message.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}
