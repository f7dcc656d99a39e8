// Package store persists users, conversations and turns through gorm.
//
// Turns are append-only. Two connections writing to the same conversation
// interleave without coordination; the resulting order is whatever
// created_at plus insertion order says (last write wins, no lock).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already taken")
)

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&chat.User{}, &chat.Conversation{}, &chat.Turn{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// AppendTurn durably writes one turn as a single atomic row and returns its
// id. There is no implicit retry; the caller decides whether a failure is
// fatal to the exchange.
func (s *Store) AppendTurn(ctx context.Context, conversationID, role, content string, createdAt time.Time) (int64, error) {
	turn := chat.Turn{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      createdAt,
	}

	if err := s.db.WithContext(ctx).Create(&turn).Error; err != nil {
		return 0, fmt.Errorf("append turn: %w", err)
	}
	return turn.ID, nil
}

// LoadHistory returns every turn of a conversation, oldest first. Ties on
// created_at fall back to insertion order.
func (s *Store) LoadHistory(ctx context.Context, conversationID string) ([]chat.Turn, error) {
	var turns []chat.Turn
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return turns, nil
}

// GetConversation resolves a conversation by id.
func (s *Store) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	var conv chat.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation provisions a conversation owned by the given user.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (chat.Conversation, error) {
	if title == "" {
		title = "New Chat"
	}

	conv := chat.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return chat.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the conversations owned by a user, newest first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and all of its turns in one
// transaction. The caller must own the conversation.
func (s *Store) DeleteConversation(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv chat.Conversation
		err := tx.First(&conv, "id = ? AND user_id = ?", id, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		if err != nil {
			return fmt.Errorf("resolve conversation: %w", err)
		}

		if err := tx.Where("conversation_id = ?", id).Delete(&chat.Turn{}).Error; err != nil {
			return fmt.Errorf("delete turns: %w", err)
		}
		if err := tx.Delete(&conv).Error; err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		return nil
	})
}

// GetUserByUsername resolves a user account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (chat.User, error) {
	var user chat.User
	err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.User{}, ErrUserNotFound
	}
	if err != nil {
		return chat.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser registers an account with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, hashedPassword string) (chat.User, error) {
	if _, err := s.GetUserByUsername(ctx, username); err == nil {
		return chat.User{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return chat.User{}, err
	}

	user := chat.User{
		ID:             uuid.NewString(),
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return chat.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
