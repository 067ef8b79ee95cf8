package store

import (
	"context"
	"errors"

	"storefront-order-service/internal/catalog"
	"storefront-order-service/internal/inventory"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository stores comercios and products. Product stock doubles as
// the inventory counter.
type CatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const businessColumns = `id, name, kind, phone, whatsapp, address, region, image_url, active, created_at, updated_at`

func scanBusiness(row pgx.Row) (catalog.Business, error) {
	var b catalog.Business
	err := row.Scan(&b.ID, &b.Name, &b.Kind, &b.Phone, &b.WhatsApp, &b.Address, &b.Region, &b.ImageURL, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *CatalogRepository) ListBusinesses(ctx context.Context, onlyActive bool) ([]catalog.Business, error) {
	rows, err := r.db.Query(ctx, `
		select `+businessColumns+` from comercios
		where ($1::boolean = false or active)
		order by name
	`, onlyActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.Business, 0)
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) GetBusiness(ctx context.Context, id string) (catalog.Business, error) {
	b, err := scanBusiness(r.db.QueryRow(ctx, `select `+businessColumns+` from comercios where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Business{}, catalog.ErrNotFound
	}
	return b, err
}

func (r *CatalogRepository) SaveBusiness(ctx context.Context, b catalog.Business) error {
	_, err := r.db.Exec(ctx, `
		insert into comercios (`+businessColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		on conflict (id) do update set
			name = excluded.name, kind = excluded.kind, phone = excluded.phone,
			whatsapp = excluded.whatsapp, address = excluded.address, region = excluded.region,
			image_url = excluded.image_url, active = excluded.active, updated_at = excluded.updated_at
	`, b.ID, b.Name, b.Kind, b.Phone, b.WhatsApp, b.Address, b.Region, b.ImageURL, b.Active, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *CatalogRepository) DeleteBusiness(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `delete from comercios where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

const productColumns = `id, business_id, name, description, category, price, variants, stock, image_url, thumb_url, active, created_at, updated_at`

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Variants,
		&p.Stock, &p.ImageURL, &p.ThumbURL, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *CatalogRepository) ListProducts(ctx context.Context, businessID string) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, `
		select `+productColumns+` from products
		where ($1 = '' or business_id = $1)
		order by name
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `select `+productColumns+` from products where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, err
}

// SaveProduct upserts a product. Stock is only written on insert; later
// changes go through Adjust.
func (r *CatalogRepository) SaveProduct(ctx context.Context, p catalog.Product) error {
	variants := p.Variants
	if variants == nil {
		variants = []catalog.Variant{}
	}
	_, err := r.db.Exec(ctx, `
		insert into products (`+productColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		on conflict (id) do update set
			name = excluded.name, description = excluded.description, category = excluded.category,
			price = excluded.price, variants = excluded.variants, image_url = excluded.image_url,
			thumb_url = excluded.thumb_url, active = excluded.active, updated_at = excluded.updated_at
	`, p.ID, p.BusinessID, p.Name, p.Description, p.Category, p.Price, variants,
		p.Stock, p.ImageURL, p.ThumbURL, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) Adjust(ctx context.Context, productID string, delta int) error {
	tag, err := r.db.Exec(ctx, `update products set stock = stock + $2, updated_at = now() where id = $1`, productID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (inventory.Record, error) {
	var rec inventory.Record
	err := r.db.QueryRow(ctx, `select id, stock, updated_at from products where id = $1`, productID).
		Scan(&rec.ProductID, &rec.Stock, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Record{}, inventory.ErrNotFound
	}
	return rec, err
}

var (
	_ catalog.Repository = (*CatalogRepository)(nil)
	_ inventory.Store    = (*CatalogRepository)(nil)
)
