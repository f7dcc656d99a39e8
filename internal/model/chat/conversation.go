package chat

import "time"

// User is a registered account able to own conversations.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	HashedPassword string    `gorm:"size:128;not null" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Identity is the resolved view of a user, immutable for the lifetime of a
// connection.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Identity projects the authentication-relevant fields of a user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}

// Conversation is an owned, named container of turns.
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:120;not null" json:"title"`
	UserID    string    `gorm:"size:36;index;not null" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
