package message

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrEmptyText rejects blank messages.
	ErrEmptyText = errors.New("message: text is required")
	// ErrRecipientMissing signals the recipient does not exist.
	ErrRecipientMissing = errors.New("message: recipient does not exist")
)

const messageColumns = `id, sender_id, recipient_id, text, read, created_at`

// Repository stores direct messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Send inserts a message from sender to recipient.
func (r *Repository) Send(ctx context.Context, senderID, recipientID, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyText
	}

	const insertSQL = `
		INSERT INTO messages (id, sender_id, recipient_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	var msg Message
	err := r.pool.QueryRow(ctx, insertSQL, uuid.NewString(), senderID, recipientID, text).Scan(
		&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Text, &msg.Read, &msg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Message{}, ErrRecipientMissing
		}
		return Message{}, fmt.Errorf("message: send: %w", err)
	}

	return msg, nil
}

// Thread returns all messages between the two users in chronological order
// and marks the partner's messages read.
func (r *Repository) Thread(ctx context.Context, userID, partnerID string) ([]Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("message: thread: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Text, &msg.Read, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("message: scan: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message: iterate: %w", err)
	}

	const markReadSQL = `
		UPDATE messages SET read = true
		WHERE recipient_id = $1 AND sender_id = $2 AND read = false
	`
	if _, err := r.pool.Exec(ctx, markReadSQL, userID, partnerID); err != nil {
		return nil, fmt.Errorf("message: mark read: %w", err)
	}

	return messages, nil
}

// Conversations returns one entry per chat partner with the latest message
// and the caller's unread count, most recent first.
func (r *Repository) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	const query = `
		SELECT DISTINCT ON (partner_id)
			partner_id, id, sender_id, recipient_id, text, read, created_at,
			(SELECT count(*) FROM messages u
			 WHERE u.recipient_id = $1 AND u.sender_id = partner_id AND u.read = false)
		FROM (
			SELECT *,
				CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS partner_id
			FROM messages
			WHERE sender_id = $1 OR recipient_id = $1
		) m
		ORDER BY partner_id, created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("message: conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(
			&c.PartnerID,
			&c.LastMessage.ID,
			&c.LastMessage.SenderID,
			&c.LastMessage.RecipientID,
			&c.LastMessage.Text,
			&c.LastMessage.Read,
			&c.LastMessage.CreatedAt,
			&c.Unread,
		); err != nil {
			return nil, fmt.Errorf("message: scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message: iterate conversations: %w", err)
	}

	return conversations, nil
}
