package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
	"github.com/lumenchat/lumen/backend/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	return st
}

func seedConversation(t *testing.T, st *store.Store) (chat.User, chat.Conversation) {
	t.Helper()
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "hashed")
	if err != nil {
		t.Fatalf("CreateUser err: %v", err)
	}
	conv, err := st.CreateConversation(ctx, user.ID, "Test Chat")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}
	return user, conv
}

func TestAppendTurnAndLoadHistoryOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_, conv := seedConversation(t, st)

	// Identical timestamps: insertion order must break the tie.
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if _, err := st.AppendTurn(ctx, conv.ID, chat.RoleUser, "hello", at); err != nil {
		t.Fatalf("AppendTurn err: %v", err)
	}
	if _, err := st.AppendTurn(ctx, conv.ID, chat.RoleAssistant, "hi there", at); err != nil {
		t.Fatalf("AppendTurn err: %v", err)
	}

	turns, err := st.LoadHistory(ctx, conv.ID)
	if err != nil {
		t.Fatalf("LoadHistory err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Content != "hello" || turns[1].Content != "hi there" {
		t.Fatalf("unexpected order: %q then %q", turns[0].Content, turns[1].Content)
	}
	if turns[0].Role != chat.RoleUser || turns[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected roles: %s then %s", turns[0].Role, turns[1].Role)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetConversation(context.Background(), "missing")
	if !errors.Is(err, store.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestDeleteConversationCascadesTurns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user, conv := seedConversation(t, st)

	if _, err := st.AppendTurn(ctx, conv.ID, chat.RoleUser, "hello", time.Now().UTC()); err != nil {
		t.Fatalf("AppendTurn err: %v", err)
	}

	if err := st.DeleteConversation(ctx, conv.ID, user.ID); err != nil {
		t.Fatalf("DeleteConversation err: %v", err)
	}

	if _, err := st.GetConversation(ctx, conv.ID); !errors.Is(err, store.ErrConversationNotFound) {
		t.Fatalf("expected conversation gone, got %v", err)
	}

	turns, err := st.LoadHistory(ctx, conv.ID)
	if err != nil {
		t.Fatalf("LoadHistory err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected turns cascade-deleted, got %d", len(turns))
	}
}

func TestDeleteConversationEnforcesOwnership(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	_, conv := seedConversation(t, st)

	err := st.DeleteConversation(ctx, conv.ID, "someone-else")
	if !errors.Is(err, store.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for foreign owner, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "alice", "hashed"); err != nil {
		t.Fatalf("CreateUser err: %v", err)
	}
	if _, err := st.CreateUser(ctx, "alice", "hashed"); !errors.Is(err, store.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestListConversationsScopedToOwner(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user, _ := seedConversation(t, st)

	other, err := st.CreateUser(ctx, "bob", "hashed")
	if err != nil {
		t.Fatalf("CreateUser err: %v", err)
	}
	if _, err := st.CreateConversation(ctx, other.ID, "Bob's Chat"); err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	convs, err := st.ListConversations(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListConversations err: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation for alice, got %d", len(convs))
	}
}
