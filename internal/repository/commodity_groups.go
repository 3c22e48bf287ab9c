package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
)

type CommodityGroupRepository interface {
	List(ctx context.Context) ([]entity.CommodityGroup, error)
	GetByID(ctx context.Context, id int32) (*entity.CommodityGroup, error)
	Search(ctx context.Context, query string) ([]entity.CommodityGroup, error)
}

type commodityGroupRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewCommodityGroupRepository(pool *pgxpool.Pool, logger *slog.Logger) CommodityGroupRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &commodityGroupRepository{pool: pool, logger: logger}
}

func (r *commodityGroupRepository) List(ctx context.Context) ([]entity.CommodityGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, category, name FROM commodity_groups ORDER BY id`)
	if err != nil {
		r.logger.Error("failed to list commodity groups", "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.CommodityGroup
	for rows.Next() {
		var g entity.CommodityGroup
		if err := rows.Scan(&g.ID, &g.Category, &g.Name); err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}

func (r *commodityGroupRepository) Search(ctx context.Context, query string) ([]entity.CommodityGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, category, name FROM commodity_groups
		WHERE name ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%'
		ORDER BY id`, query)
	if err != nil {
		r.logger.Error("failed to search commodity groups", "query", query, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []entity.CommodityGroup
	for rows.Next() {
		var g entity.CommodityGroup
		if err := rows.Scan(&g.ID, &g.Category, &g.Name); err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}

func (r *commodityGroupRepository) GetByID(ctx context.Context, id int32) (*entity.CommodityGroup, error) {
	var g entity.CommodityGroup
	err := r.pool.QueryRow(ctx,
		`SELECT id, category, name FROM commodity_groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.Category, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("commodity group %d", id))
		}
		r.logger.Error("failed to get commodity group", "group_id", id, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return &g, nil
}
