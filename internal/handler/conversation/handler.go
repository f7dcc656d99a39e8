// Package conversation exposes the REST surface around the chat socket:
// registration, login and conversation listing, creation and deletion.
package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
	"github.com/lumenchat/lumen/backend/internal/service/auth"
	"github.com/lumenchat/lumen/backend/internal/store"
	"github.com/lumenchat/lumen/backend/pkg/utils"
)

// Handler serves the conversation resources.
type Handler struct {
	store    *store.Store
	verifier *auth.Verifier
}

// New builds the REST handler.
func New(st *store.Store, verifier *auth.Verifier) *Handler {
	return &Handler{store: st, verifier: verifier}
}

// RegisterRoutes mounts the REST endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/users", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/conversations", h.handleList)
	r.Post("/conversations", h.handleCreate)
	r.Delete("/conversations/{conversationID}", h.handleDelete)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), payload.Username, string(hashed))
	if errors.Is(err, store.ErrUsernameTaken) {
		utils.RespondError(w, http.StatusConflict, "username already registered")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, user.Identity())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Username == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), payload.Username)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(payload.Password)); err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := h.verifier.IssueToken(user.Username)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}

	convs, err := h.store.ListConversations(r.Context(), identity.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	utils.RespondJSON(w, http.StatusOK, convs)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.store.CreateConversation(r.Context(), identity.ID, strings.TrimSpace(payload.Title))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	err := h.store.DeleteConversation(r.Context(), conversationID, identity.ID)
	if errors.Is(err, store.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// identify resolves the bearer credential in the Authorization header.
func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (chat.Identity, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "bearer token required")
		return chat.Identity{}, false
	}

	identity, err := h.verifier.ValidateToken(r.Context(), token)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid credentials")
		return chat.Identity{}, false
	}

	return identity, true
}
