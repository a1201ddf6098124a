package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

const productColumns = `
	p.id, p.category_id, c.name AS category_name, p.name, p.description, p.price,
	p.image_url, p.is_popular, p.is_active, p.in_stock, p.created_at, p.updated_at`

func (s *sqlxStore) ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	} else if limit > maxPageSize {
		limit = maxPageSize
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	conds := []string{"p.is_active = 1"}
	var args []any
	if filter.CategoryID != nil {
		conds = append(conds, "p.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.IsPopular != nil {
		conds = append(conds, "p.is_popular = ?")
		args = append(args, *filter.IsPopular)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conds = append(conds, "(p.name LIKE ? OR p.description LIKE ?)")
		term := "%" + search + "%"
		args = append(args, term, term)
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products p WHERE "+where, args...); err != nil {
		return nil, s.queryErr(ctx, "count products", err)
	}

	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE ` + where + `
		ORDER BY p.is_popular DESC, p.price DESC, p.id ASC
		LIMIT ? OFFSET ?`

	products := []Product{}
	if err := s.db.SelectContext(ctx, &products, query, append(args, limit, skip)...); err != nil {
		return nil, s.queryErr(ctx, "list products", err)
	}

	s.logger.DebugContext(ctx, "Listed products", "count", len(products), "total", total)
	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     skip/limit + 1,
		PerPage:  limit,
	}, nil
}

func (s *sqlxStore) ListActiveProducts(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.is_active = 1
		ORDER BY p.id`

	var products []Product
	if err := s.db.SelectContext(ctx, &products, query); err != nil {
		return nil, s.queryErr(ctx, "list active products", err)
	}
	return products, nil
}

func (s *sqlxStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?`

	var p Product
	err := s.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.DebugContext(ctx, "Product not found", "product_id", id)
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, s.queryErr(ctx, "get product", err, "product_id", id)
	}
	return &p, nil
}

func (s *sqlxStore) UpsertProduct(ctx context.Context, product *Product) error {
	if product == nil {
		return fmt.Errorf("cannot save nil product")
	}
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product must have a name")
	}
	if product.Price < 0 {
		return fmt.Errorf("product %q has negative price", product.Name)
	}

	ts := nowUTC()
	product.UpdatedAt = ts
	if product.CreatedAt.IsZero() {
		product.CreatedAt = ts
	}

	var id any
	if product.ID > 0 {
		id = product.ID
	}

	query := `
		INSERT INTO products (id, category_id, name, description, price, image_url,
			is_popular, is_active, in_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			image_url = excluded.image_url,
			is_popular = excluded.is_popular,
			is_active = excluded.is_active,
			in_stock = excluded.in_stock,
			updated_at = excluded.updated_at`

	res, err := s.db.ExecContext(ctx, query, id, product.CategoryID, product.Name, product.Description,
		product.Price, product.ImageURL, product.IsPopular, product.IsActive, product.InStock,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return s.queryErr(ctx, "upsert product", err, "product_id", product.ID)
	}

	if product.ID == 0 {
		if newID, err := res.LastInsertId(); err == nil {
			product.ID = newID
		}
	}

	s.logger.DebugContext(ctx, "Product saved", "product_id", product.ID, "name", product.Name)
	return nil
}

func (s *sqlxStore) UpsertCategory(ctx context.Context, name, description string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("category must have a name")
	}

	var id int64
	err := s.withTx(ctx, "upsert category", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, description, created_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET description =
				CASE WHEN excluded.description != '' THEN excluded.description ELSE categories.description END`,
			name, description, nowUTC())
		if err != nil {
			return s.queryErr(ctx, "upsert category", err, "name", name)
		}
		if err := tx.GetContext(ctx, &id, `SELECT id FROM categories WHERE name = ?`, name); err != nil {
			return s.queryErr(ctx, "get category id", err, "name", name)
		}
		return nil
	})
	return id, err
}

func (s *sqlxStore) ListCategories(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	err := s.db.SelectContext(ctx, &categories, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, s.queryErr(ctx, "list categories", err)
	}
	return categories, nil
}
