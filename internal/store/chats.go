package store

import (
	"context"

	"zenith-backend/internal/models"
)

func (p *Postgres) FindOrCreateChat(ctx context.Context, userA, userB int64) (*models.Chat, error) {
	low, high := OrderedPair(userA, userB)
	if _, err := p.db.ExecContext(ctx, `
INSERT INTO chats (user_low, user_high) VALUES ($1,$2)
ON CONFLICT (user_low, user_high) DO NOTHING
`, low, high); err != nil {
		return nil, mapError(err)
	}
	var chat models.Chat
	if err := p.db.GetContext(ctx, &chat, `
SELECT id, user_low, user_high, created_at FROM chats
WHERE user_low = $1 AND user_high = $2
`, low, high); err != nil {
		return nil, mapError(err)
	}
	return &chat, nil
}

func (p *Postgres) ChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	var chat models.Chat
	if err := p.db.GetContext(ctx, &chat, `SELECT id, user_low, user_high, created_at FROM chats WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &chat, nil
}

func (p *Postgres) ChatsByUser(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	items := []models.ChatSummary{}
	if err := p.db.SelectContext(ctx, &items, `
SELECT c.id, c.user_low, c.user_high, c.created_at,
       u.id AS other_user_id, u.username AS other_username,
       trim(u.first_name || ' ' || u.last_name) AS other_name,
       lm.content AS last_message, lm.created_at AS last_message_at
FROM chats c
JOIN users u ON u.id = CASE WHEN c.user_low = $1 THEN c.user_high ELSE c.user_low END
LEFT JOIN LATERAL (
  SELECT m.content, m.created_at FROM messages m
  WHERE m.chat_id = c.id
  ORDER BY m.created_at DESC, m.id DESC
  LIMIT 1
) lm ON TRUE
WHERE c.user_low = $1 OR c.user_high = $1
ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id DESC
`, userID); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

func (p *Postgres) Messages(ctx context.Context, chatID int64) ([]models.Message, error) {
	messages := []models.Message{}
	if err := p.db.SelectContext(ctx, &messages, `
SELECT id, chat_id, sender_id, content, created_at FROM messages
WHERE chat_id = $1
ORDER BY created_at, id
`, chatID); err != nil {
		return nil, mapError(err)
	}
	return messages, nil
}

func (p *Postgres) CreateMessage(ctx context.Context, message *models.Message) error {
	err := p.db.QueryRowxContext(ctx, `
INSERT INTO messages (chat_id, sender_id, content) VALUES ($1,$2,$3)
RETURNING id, created_at
`, message.ChatID, message.SenderID, message.Content).Scan(&message.ID, &message.CreatedAt)
	return mapError(err)
}
