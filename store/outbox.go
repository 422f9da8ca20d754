package store

import (
	"context"
	"time"
)

type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

func (q *Queries) EnqueueOutbox(ctx context.Context, topic string, payload []byte, msgType string) error {
	_, err := q.exec(ctx, `INSERT INTO outbox (topic, payload, msg_type) VALUES (?, ?, ?)`, topic, payload, msgType)
	return err
}

// ListPendingOutbox returns unsent messages oldest first.
func (q *Queries) ListPendingOutbox(ctx context.Context, limit int) ([]*OutboxMessage, error) {
	rows, err := q.query(ctx, `SELECT id, topic, payload, msg_type, retries, created_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.Retries, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (q *Queries) AckOutbox(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `UPDATE outbox SET sent_at=datetime('now') WHERE id=?`, id)
	return err
}

func (q *Queries) IncrementOutboxRetries(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `UPDATE outbox SET retries=retries+1 WHERE id=?`, id)
	return err
}

// PurgeSentOutbox deletes acknowledged messages sent before the cutoff.
func (q *Queries) PurgeSentOutbox(ctx context.Context, before time.Time) (int64, error) {
	return q.exec(ctx, `DELETE FROM outbox WHERE sent_at IS NOT NULL AND sent_at<?`, q.ts(before))
}
