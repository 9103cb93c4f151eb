package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CatalogFilter narrows catalog listings.
type CatalogFilter struct {
	CategoryID string
	BrandID    string
	ActiveOnly bool
	Search     string
}

// UpsertProduct inserts or replaces one catalog row during sync
func (s *Store) UpsertProduct(ctx context.Context, p *models.CatalogItem) error {
	query := `
		INSERT INTO products (id, name, slug, description, price, discount_pct, discounted_price,
			image_url, stock, active, brand_id, category_id, category_type_id, updated_at)
		VALUES (:id, :name, :slug, :description, :price, :discount_pct, :discounted_price,
			:image_url, :stock, :active, :brand_id, :category_id, :category_type_id, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			discount_pct = EXCLUDED.discount_pct,
			discounted_price = EXCLUDED.discounted_price,
			image_url = EXCLUDED.image_url,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active,
			brand_id = EXCLUDED.brand_id,
			category_id = EXCLUDED.category_id,
			category_type_id = EXCLUDED.category_type_id,
			updated_at = NOW()`

	_, err := s.db.NamedExecContext(ctx, query, p)
	return err
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.CatalogItem, error) {
	var product models.CatalogItem
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves catalog items matching the filter
func (s *Store) GetProducts(ctx context.Context, filter CatalogFilter) ([]models.CatalogItem, error) {
	query := "SELECT * FROM products WHERE 1=1"
	args := []interface{}{}

	if filter.ActiveOnly {
		query += " AND active = TRUE"
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if filter.BrandID != "" {
		args = append(args, filter.BrandID)
		query += fmt.Sprintf(" AND brand_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	query += " ORDER BY name"

	var products []models.CatalogItem
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.CatalogItem, error) {
	if len(ids) == 0 {
		return []models.CatalogItem{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.CatalogItem
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// DeactivateMissing marks every product not in keepIDs inactive.
// Called after a full sync so items removed upstream stop being
// addable to carts without losing their snapshot data.
func (s *Store) DeactivateMissing(ctx context.Context, keepIDs []string) error {
	if len(keepIDs) == 0 {
		_, err := s.db.ExecContext(ctx, "UPDATE products SET active = FALSE, updated_at = NOW()")
		return err
	}

	query, args, err := sqlx.In("UPDATE products SET active = FALSE, updated_at = NOW() WHERE id NOT IN (?)", keepIDs)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}
