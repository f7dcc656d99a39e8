package wire_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/lumenchat/lumen/backend/internal/model/wire"
)

func TestValidateAuthFrame(t *testing.T) {
	frame := wire.ClientFrame{Type: wire.TypeAuth, Token: "credential"}
	if err := frame.Validate(); err != nil {
		t.Fatalf("Validate err: %v", err)
	}

	frame = wire.ClientFrame{Type: wire.TypeAuth, Token: "   "}
	if err := frame.Validate(); !errors.Is(err, wire.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	frame := wire.ClientFrame{Type: "ping"}
	if err := frame.Validate(); !errors.Is(err, wire.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestHistoryNeverMarshalsNullMessages(t *testing.T) {
	data, err := json.Marshal(wire.NewHistory(nil))
	if err != nil {
		t.Fatalf("Marshal err: %v", err)
	}

	if string(data) != `{"type":"history","messages":[]}` {
		t.Fatalf("unexpected history frame: %s", data)
	}
}
