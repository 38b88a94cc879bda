package message

import "time"

// Message is one direct message between two users.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Text        string
	Read        bool
	CreatedAt   time.Time
}

// Conversation summarises a thread for the conversation list screen.
type Conversation struct {
	PartnerID   string
	LastMessage Message
	Unread      int
}
