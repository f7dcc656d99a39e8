package conversation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumenchat/lumen/backend/internal/handler/conversation"
	"github.com/lumenchat/lumen/backend/internal/model/chat"
	"github.com/lumenchat/lumen/backend/internal/service/auth"
	"github.com/lumenchat/lumen/backend/internal/store"
)

type fixture struct {
	server *httptest.Server
	store  *store.Store
	user   chat.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword err: %v", err)
	}
	user, err := st.CreateUser(context.Background(), "alice", string(hashed))
	if err != nil {
		t.Fatalf("CreateUser err: %v", err)
	}

	verifier := auth.NewVerifier("secret", 30*time.Minute, st)
	handler := conversation.New(st, verifier)

	r := chi.NewRouter()
	r.Route("/api", handler.RegisterRoutes)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &fixture{server: server, store: st, user: user}
}

func (f *fixture) login(t *testing.T, username, password string) (*http.Response, map[string]string) {
	t.Helper()

	body := strings.NewReader(`{"username":"` + username + `","password":"` + password + `"}`)
	resp, err := http.Post(f.server.URL+"/api/login", "application/json", body)
	if err != nil {
		t.Fatalf("login request err: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]string
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode login response err: %v", err)
		}
	}
	return resp, payload
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()

	resp, payload := f.login(t, "alice", "s3cret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	return payload["access_token"]
}

func (f *fixture) request(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("{}")
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request err: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s err: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) register(t *testing.T, username, password string) *http.Response {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	resp, err := http.Post(f.server.URL+"/api/users", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("register request err: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)

	resp := f.register(t, "bob", "hunter2")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d", resp.StatusCode)
	}
	var identity chat.Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		t.Fatalf("decode register response err: %v", err)
	}
	if identity.Username != "bob" || identity.ID == "" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	loginResp, payload := f.login(t, "bob", "hunter2")
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", loginResp.StatusCode)
	}
	if payload["access_token"] == "" {
		t.Fatal("expected a non-empty access token")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)

	resp := f.register(t, "alice", "hunter2")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestRegisterRequiresCredentials(t *testing.T) {
	f := newFixture(t)

	resp := f.register(t, "   ", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginIssuesBearerToken(t *testing.T) {
	f := newFixture(t)

	resp, payload := f.login(t, "alice", "s3cret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	if payload["token_type"] != "bearer" {
		t.Fatalf("expected bearer token type, got %q", payload["token_type"])
	}
	if payload["access_token"] == "" {
		t.Fatal("expected a non-empty access token")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.login(t, "alice", "wrong")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.login(t, "mallory", "s3cret")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestConversationsRequireBearerToken(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/conversations", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateAndListConversations(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	resp := f.request(t, http.MethodPost, "/api/conversations", token, `{"title":"Trip planning"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created chat.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response err: %v", err)
	}
	if created.Title != "Trip planning" || created.UserID != f.user.ID {
		t.Fatalf("unexpected conversation: %+v", created)
	}

	resp = f.request(t, http.MethodGet, "/api/conversations", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var listed []chat.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response err: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}
}

func TestCreateConversationDefaultsTitle(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	resp := f.request(t, http.MethodPost, "/api/conversations", token, `{"title":"   "}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created chat.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response err: %v", err)
	}
	if created.Title != "New Chat" {
		t.Fatalf("expected default title, got %q", created.Title)
	}
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	token := f.token(t)

	conv, err := f.store.CreateConversation(context.Background(), f.user.ID, "Doomed")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	resp := f.request(t, http.MethodDelete, "/api/conversations/"+conv.ID, token, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = f.request(t, http.MethodDelete, "/api/conversations/"+conv.ID, token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}
