package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

// WriteDay replaces the mirrored conversations of one day.
// Tables: conversations, conversation_messages.
func (s *Store) WriteDay(ctx context.Context, runID uuid.UUID, date string, convs []chat.Conversation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Drop the day's previous copy
	if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE day = $1`, date); err != nil {
		return fmt.Errorf("delete day: %w", err)
	}

	for i, c := range convs {
		// 2. Insert conversation
		var score *int
		flagged := false
		if c.Analysis != nil {
			score = &c.Analysis.Score
			flagged = c.Analysis.IsRisk
		}
		convID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO conversations (id, run_id, day, position, info, ext_id, risk_score, flagged, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
			convID, runID, date, i, c.Info, c.ID, score, flagged,
		)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}

		// 3. Insert messages
		if len(c.Messages) == 0 {
			continue
		}
		rows := make([][]any, len(c.Messages))
		for j, m := range c.Messages {
			rows[j] = []any{convID, j, m.Time, string(m.Sender), m.Content, string(m.Type)}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"conversation_messages"},
			[]string{"conversation_id", "position", "sent_time", "sender", "content", "kind"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy messages: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
