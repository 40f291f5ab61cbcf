package messages

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/dbx"
	"github.com/dmitrijs2005/whisperbox/internal/server/models"
)

// PostgresRepository writes all copies of a message in one transaction.
type PostgresRepository struct {
	db   *sql.DB
	opts options
}

func NewPostgresRepository(db *sql.DB, opts ...Option) *PostgresRepository {
	return &PostgresRepository{db: db, opts: newOptions(opts)}
}

func (r *PostgresRepository) Append(ctx context.Context, senderID, receiverID, ciphertext string) (*models.Message, error) {
	msg := r.opts.newMessage(senderID, receiverID, ciphertext)

	viewQuery :=
		`INSERT INTO user_messages (owner_id, partner_id, message_id, sender_id, receiver_id, ts, ciphertext)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `
	logQuery :=
		`INSERT INTO messages (id, sender_id, receiver_id, ts, ciphertext)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, v := range views(msg) {
			if _, err := tx.ExecContext(ctx, viewQuery,
				v.owner, v.partner, msg.ID, msg.SenderID, msg.ReceiverID, msg.Timestamp, msg.Ciphertext); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, logQuery, msg.ID, msg.SenderID, msg.ReceiverID, msg.Timestamp, msg.Ciphertext)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	return msg, nil
}

func (r *PostgresRepository) GetThread(ctx context.Context, owner, partner string) ([]*models.Message, error) {
	query :=
		`SELECT partner_id, message_id, sender_id, receiver_id, ts, ciphertext FROM user_messages
		 WHERE owner_id = $1 AND partner_id = $2
		 ORDER BY ts, message_id
		 `

	threads, err := r.query(ctx, query, owner, partner)
	if err != nil {
		return nil, err
	}
	if msgs := threads[partner]; msgs != nil {
		return msgs, nil
	}
	return []*models.Message{}, nil
}

func (r *PostgresRepository) GetLatestPerPartner(ctx context.Context, owner string) (map[string]*models.Message, error) {
	query :=
		`SELECT DISTINCT ON (partner_id) partner_id, message_id, sender_id, receiver_id, ts, ciphertext
		 FROM user_messages
		 WHERE owner_id = $1
		 ORDER BY partner_id, ts DESC, message_id DESC
		 `

	threads, err := r.query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	return latestOf(threads), nil
}

func (r *PostgresRepository) GetAllThreads(ctx context.Context, owner string) (map[string][]*models.Message, error) {
	query :=
		`SELECT partner_id, message_id, sender_id, receiver_id, ts, ciphertext FROM user_messages
		 WHERE owner_id = $1
		 ORDER BY partner_id, ts, message_id
		 `

	return r.query(ctx, query, owner)
}

// query groups result rows by partner, keeping row order.
func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) (map[string][]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	threads := make(map[string][]*models.Message)
	for rows.Next() {
		var partner string
		m := &models.Message{}
		if err := rows.Scan(&partner, &m.ID, &m.SenderID, &m.ReceiverID, &m.Timestamp, &m.Ciphertext); err != nil {
			return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
		}
		m.Timestamp = m.Timestamp.UTC()
		threads[partner] = append(threads[partner], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
	}
	return threads, nil
}
