package recorder

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/postgres"
)

const chatsTable = "chats"

// ChatWriter persists chat events into the chats table.
type ChatWriter struct {
	client *postgres.Client
	db     *goqu.Database
}

func NewChatWriter(client *postgres.Client) *ChatWriter {
	return &ChatWriter{
		client: client,
		db:     goqu.New("postgres", client.DB),
	}
}

// InsertChat stores a search. Re-inserting an existing chat id changes
// nothing and returns ErrDuplicateEvent, so redelivered events are harmless.
func (w *ChatWriter) InsertChat(ctx context.Context, ev analytics.SearchEvent) error {
	query, args, err := w.db.Insert(chatsTable).
		Prepared(true).
		Rows(goqu.Record{
			"id":         ev.ID,
			"question":   ev.Question,
			"created_at": ev.CreatedAt,
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}

	result, err := w.client.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("inserting chat %s: %w", ev.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("chat %s: %w", ev.ID, apperrors.ErrDuplicateEvent)
	}
	return nil
}

// SetFeedback records feedback on a chat that has none yet. It returns
// ErrChatNotFound when the chat does not exist and ErrFeedbackAlreadySet when
// it was already rated.
func (w *ChatWriter) SetFeedback(ctx context.Context, chatID string, feedback analytics.Feedback) error {
	update, updateArgs, err := w.db.Update(chatsTable).
		Prepared(true).
		Set(goqu.Record{"feedback": string(feedback)}).
		Where(goqu.Ex{"id": chatID, "feedback": nil}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building feedback update: %w", err)
	}
	exists, existsArgs, err := w.db.From(chatsTable).
		Prepared(true).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"id": chatID}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building existence query: %w", err)
	}

	return w.client.InTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, update, updateArgs...)
		if err != nil {
			return fmt.Errorf("updating feedback for chat %s: %w", chatID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		if rows > 0 {
			return nil
		}

		var n int64
		if err := tx.QueryRowContext(ctx, exists, existsArgs...).Scan(&n); err != nil {
			return fmt.Errorf("checking chat %s: %w", chatID, err)
		}
		if n == 0 {
			return fmt.Errorf("chat %s: %w", chatID, apperrors.ErrChatNotFound)
		}
		return fmt.Errorf("chat %s: %w", chatID, apperrors.ErrFeedbackAlreadySet)
	})
}
