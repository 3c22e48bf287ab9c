package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/constants"
	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
)

// RequestFilter narrows List results.
type RequestFilter struct {
	Status     *constants.RequestStatus
	Department *string
}

type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) (*entity.Request, error)
	GetByID(ctx context.Context, id int64) (*entity.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.Request, error)
	Update(ctx context.Context, id int64, upd entity.RequestUpdate) (*entity.Request, error)
	UpdateStatus(ctx context.Context, id int64, status constants.RequestStatus) (*entity.Request, error)
	UpdateClassification(ctx context.Context, id int64, groupID *int32, confidence *float64) error
	ReplaceOrderLines(ctx context.Context, id int64, lines []entity.OrderLineCreate, totalCost decimal.Decimal) (*entity.Request, error)
	Delete(ctx context.Context, id int64) error
}

type requestRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRequestRepository(pool *pgxpool.Pool, logger *slog.Logger) RequestRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &requestRepository{pool: pool, logger: logger}
}

const requestColumns = `id, requestor_name, title, vendor_name, vat_id, department,
	commodity_group_id, commodity_group_confidence, total_cost::text, status,
	offer_path, offer_filename, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, req *entity.Request) (*entity.Request, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO requests
			(requestor_name, title, vendor_name, vat_id, department,
			 commodity_group_id, commodity_group_confidence, total_cost, status,
			 offer_path, offer_filename)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+requestColumns,
		req.RequestorName, req.Title, req.VendorName, req.VATID, req.Department,
		req.CommodityGroupID, req.CommodityGroupConfidence, req.TotalCost.String(),
		string(req.Status), req.OfferPath, req.OfferFilename,
	)
	created, err := scanRequest(row)
	if err != nil {
		r.logger.Error("failed to insert request", "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}

	lines := make([]entity.OrderLineCreate, len(req.OrderLines))
	for i, l := range req.OrderLines {
		lines[i] = entity.OrderLineCreate{
			Description: l.Description, UnitPrice: l.UnitPrice,
			Amount: l.Amount, Unit: l.Unit, TotalPrice: l.TotalPrice,
		}
	}
	created.OrderLines, err = insertOrderLines(ctx, tx, created.ID, lines)
	if err != nil {
		r.logger.Error("failed to insert order lines", "request_id", created.ID, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return created, nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
		}
		r.logger.Error("failed to get request", "request_id", id, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	if err := r.attachOrderLines(ctx, []*entity.Request{req}); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]*entity.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests`
	var conds []string
	var args []any
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		conds = append(conds, fmt.Sprintf("department = $%d", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list requests", "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, common.WrapError(common.ErrDatabase, err.Error())
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	if err := r.attachOrderLines(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *requestRepository) Update(ctx context.Context, id int64, upd entity.RequestUpdate) (*entity.Request, error) {
	var sets []string
	var args []any
	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.RequestorName != nil {
		add("requestor_name", *upd.RequestorName)
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.VendorName != nil {
		add("vendor_name", *upd.VendorName)
	}
	if upd.VATID != nil {
		add("vat_id", *upd.VATID)
	}
	if upd.Department != nil {
		add("department", *upd.Department)
	}
	if upd.TotalCost != nil {
		add("total_cost", upd.TotalCost.String())
	}
	if upd.CommodityGroupID != nil {
		add("commodity_group_id", *upd.CommodityGroupID)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE requests SET %s WHERE id = $%d RETURNING `+requestColumns,
		strings.Join(sets, ", "), len(args))

	row := r.pool.QueryRow(ctx, q, args...)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
		}
		r.logger.Error("failed to update request", "request_id", id, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	if err := r.attachOrderLines(ctx, []*entity.Request{req}); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, status constants.RequestStatus) (*entity.Request, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE requests SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+requestColumns, string(status), id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
		}
		r.logger.Error("failed to update request status", "request_id", id, "error", err)
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	if err := r.attachOrderLines(ctx, []*entity.Request{req}); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) UpdateClassification(ctx context.Context, id int64, groupID *int32, confidence *float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE requests
		SET commodity_group_id = $1, commodity_group_confidence = $2, updated_at = now()
		WHERE id = $3`, groupID, confidence, id)
	if err != nil {
		r.logger.Error("failed to update classification", "request_id", id, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	return nil
}

func (r *requestRepository) ReplaceOrderLines(ctx context.Context, id int64, lines []entity.OrderLineCreate, totalCost decimal.Decimal) (*entity.Request, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE requests SET total_cost = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+requestColumns, totalCost.String(), id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
		}
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE request_id = $1`, id); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	req.OrderLines, err = insertOrderLines(ctx, tx, id, lines)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return req, nil
}

func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete request", "request_id", id, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.WrapError(common.ErrNotFound, fmt.Sprintf("request %d", id))
	}
	return nil
}

// attachOrderLines loads the lines for a batch of requests in one query.
func (r *requestRepository) attachOrderLines(ctx context.Context, reqs []*entity.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	byID := make(map[int64]*entity.Request, len(reqs))
	ids := make([]int64, len(reqs))
	for i, req := range reqs {
		byID[req.ID] = req
		ids[i] = req.ID
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, position_description, unit_price::text, amount::text, unit, total_price::text
		FROM order_lines
		WHERE request_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		r.logger.Error("failed to load order lines", "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var line entity.OrderLine
		var unitPrice, amount, totalPrice string
		if err := rows.Scan(&line.ID, &line.RequestID, &line.Description,
			&unitPrice, &amount, &line.Unit, &totalPrice); err != nil {
			return common.WrapError(common.ErrDatabase, err.Error())
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return common.WrapError(common.ErrDatabase, err.Error())
		}
		if line.Amount, err = decimal.NewFromString(amount); err != nil {
			return common.WrapError(common.ErrDatabase, err.Error())
		}
		if line.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return common.WrapError(common.ErrDatabase, err.Error())
		}
		if req, ok := byID[line.RequestID]; ok {
			req.OrderLines = append(req.OrderLines, line)
		}
	}
	return rows.Err()
}

func insertOrderLines(ctx context.Context, tx pgx.Tx, requestID int64, lines []entity.OrderLineCreate) ([]entity.OrderLine, error) {
	out := make([]entity.OrderLine, 0, len(lines))
	for _, l := range lines {
		var line entity.OrderLine
		var unitPrice, amount, totalPrice string
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines (request_id, position_description, unit_price, amount, unit, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, request_id, position_description, unit_price::text, amount::text, unit, total_price::text`,
			requestID, l.Description, l.UnitPrice.String(), l.Amount.String(), l.Unit, l.TotalPrice.String(),
		).Scan(&line.ID, &line.RequestID, &line.Description, &unitPrice, &amount, &line.Unit, &totalPrice)
		if err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, err
		}
		if line.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if line.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

// scanRequest reads one requests row in requestColumns order.
func scanRequest(row pgx.Row) (*entity.Request, error) {
	var req entity.Request
	var totalCost, status string
	if err := row.Scan(
		&req.ID, &req.RequestorName, &req.Title, &req.VendorName, &req.VATID, &req.Department,
		&req.CommodityGroupID, &req.CommodityGroupConfidence, &totalCost, &status,
		&req.OfferPath, &req.OfferFilename, &req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if req.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
		return nil, err
	}
	req.Status = constants.RequestStatus(status)
	return &req, nil
}
