package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
)

type StatusHistoryRepository interface {
	Append(ctx context.Context, requestID int64, oldStatus *string, newStatus string) error
	ListForRequest(ctx context.Context, requestID int64) ([]entity.StatusHistory, error)
}

type statusHistoryRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStatusHistoryRepository(pool *pgxpool.Pool, logger *slog.Logger) StatusHistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &statusHistoryRepository{pool: pool, logger: logger}
}

func (r *statusHistoryRepository) Append(ctx context.Context, requestID int64, oldStatus *string, newStatus string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO status_history (request_id, old_status, new_status)
		VALUES ($1, $2, $3)`, requestID, oldStatus, newStatus)
	if err != nil {
		r.logger.Error("failed to append status history", "request_id", requestID, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *statusHistoryRepository) ListForRequest(ctx context.Context, requestID int64) ([]entity.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, old_status, new_status, changed_at
		FROM status_history
		WHERE request_id = $1
		ORDER BY changed_at, id`, requestID)
	if err != nil {
		r.logger.Error("failed to list status history", "request_id", requestID, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.StatusHistory
	for rows.Next() {
		var h entity.StatusHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.OldStatus, &h.NewStatus, &h.ChangedAt); err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}
