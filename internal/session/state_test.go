package session_test

import (
	"testing"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
	"github.com/lumenchat/lumen/backend/internal/session"
)

func TestSeedPreservesOrder(t *testing.T) {
	state := session.Seed([]chat.TurnView{
		{Role: chat.RoleUser, Content: "first"},
		{Role: chat.RoleAssistant, Content: "second"},
	})

	snapshot := state.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(snapshot))
	}
	if snapshot[0].Content != "first" || snapshot[1].Content != "second" {
		t.Fatalf("unexpected order: %+v", snapshot)
	}
}

func TestAppendGrowsView(t *testing.T) {
	state := session.Seed(nil)

	state.Append(chat.TurnView{Role: chat.RoleUser, Content: "hello"})
	state.Append(chat.TurnView{Role: chat.RoleAssistant, Content: "hi"})

	if state.Len() != 2 {
		t.Fatalf("expected length 2, got %d", state.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	state := session.Seed([]chat.TurnView{{Role: chat.RoleUser, Content: "original"}})

	snapshot := state.Snapshot()
	snapshot[0].Content = "mutated"

	if got := state.Snapshot()[0].Content; got != "original" {
		t.Fatalf("snapshot mutation leaked into state: %s", got)
	}
}
