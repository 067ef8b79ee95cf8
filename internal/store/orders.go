// Package store holds the Postgres implementations of the domain
// repositories.
package store

import (
	"context"
	"errors"

	"storefront-order-service/internal/cart"
	"storefront-order-service/internal/order"
	"storefront-order-service/internal/pricing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, number, business, customer, items, pricing, status, payment_method, notes, history, stock_deducted_at, created_at, updated_at`

func (r *OrderRepository) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `select nextval('order_number_seq')`).Scan(&n)
	return n, err
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, `
		insert into orders (`+orderColumns+`, business_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		o.ID, o.Number, o.Business, o.Customer, o.Items, o.Pricing, string(o.Status),
		o.PaymentMethod, o.Notes, o.History, o.StockDeductedAt, o.CreatedAt, o.UpdatedAt,
		o.Business.ID,
	)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	row := r.db.QueryRow(ctx, `select `+orderColumns+` from orders where id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	return o, err
}

// Update writes only the mutable columns; items and pricing stay as inserted.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db.Exec(ctx, `
		update orders
		set status = $2, payment_method = $3, notes = $4, history = $5,
		    stock_deducted_at = $6, updated_at = $7
		where id = $1
	`, o.ID, string(o.Status), o.PaymentMethod, o.Notes, o.History, o.StockDeductedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*order.Order, error) {
	rows, err := r.db.Query(ctx, `select `+orderColumns+` from orders order by created_at desc, number desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
		items  []cart.LineItem
		pr     pricing.Breakdown
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.Business, &o.Customer, &items, &pr, &status,
		&o.PaymentMethod, &o.Notes, &o.History, &o.StockDeductedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	o.Items = items
	o.Pricing = pr
	return &o, nil
}

var _ order.Repository = (*OrderRepository)(nil)
