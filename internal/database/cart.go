package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const cartItemColumns = `
	ci.id, ci.session_id, ci.product_id, p.name AS product_name, p.image_url AS product_image,
	ci.quantity, ci.selected_size, ci.unit_price, ci.total_price, ci.created_at, ci.updated_at`

func (s *sqlxStore) AddToCart(ctx context.Context, sessionID string, productID int64, quantity int, size string) (*CartItem, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session_id cannot be empty")
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var item CartItem
	err := s.withTx(ctx, "add to cart", func(tx *sqlx.Tx) error {
		var unitPrice float64
		err := tx.GetContext(ctx, &unitPrice, `SELECT price FROM products WHERE id = ? AND is_active = 1`, productID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		if err != nil {
			return s.queryErr(ctx, "get product price", err, "product_id", productID)
		}

		ts := nowUTC()
		var existing struct {
			ID       int64 `db:"id"`
			Quantity int   `db:"quantity"`
		}
		err = tx.GetContext(ctx, &existing,
			`SELECT id, quantity FROM cart_items WHERE session_id = ? AND product_id = ? AND selected_size = ?`,
			sessionID, productID, size)

		var itemID int64
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO cart_items (session_id, product_id, quantity, selected_size, unit_price, total_price, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				sessionID, productID, quantity, size, unitPrice, unitPrice*float64(quantity), ts, ts)
			if err != nil {
				return s.queryErr(ctx, "insert cart item", err, "session_id", sessionID, "product_id", productID)
			}
			if itemID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read cart item id: %w", err)
			}
		case err != nil:
			return s.queryErr(ctx, "find cart item", err, "session_id", sessionID, "product_id", productID)
		default:
			newQty := existing.Quantity + quantity
			_, err := tx.ExecContext(ctx,
				`UPDATE cart_items SET quantity = ?, unit_price = ?, total_price = ?, updated_at = ? WHERE id = ?`,
				newQty, unitPrice, unitPrice*float64(newQty), ts, existing.ID)
			if err != nil {
				return s.queryErr(ctx, "update cart item", err, "cart_item_id", existing.ID)
			}
			itemID = existing.ID
		}

		err = tx.GetContext(ctx, &item, `SELECT `+cartItemColumns+`
			FROM cart_items ci JOIN products p ON ci.product_id = p.id
			WHERE ci.id = ?`, itemID)
		if err != nil {
			return s.queryErr(ctx, "reload cart item", err, "cart_item_id", itemID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Added to cart", "session_id", sessionID, "product_id", productID, "quantity", item.Quantity)
	return &item, nil
}

func (s *sqlxStore) GetCart(ctx context.Context, sessionID string) (*Cart, error) {
	items := []CartItem{}
	err := s.db.SelectContext(ctx, &items, `SELECT `+cartItemColumns+`
		FROM cart_items ci JOIN products p ON ci.product_id = p.id
		WHERE ci.session_id = ?
		ORDER BY ci.created_at DESC, ci.id DESC`, sessionID)
	if err != nil {
		return nil, s.queryErr(ctx, "get cart", err, "session_id", sessionID)
	}

	cart := &Cart{Items: items}
	for _, it := range items {
		cart.TotalItems += it.Quantity
		cart.TotalAmount += it.TotalPrice
	}
	return cart, nil
}

func (s *sqlxStore) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ?, total_price = unit_price * ?, updated_at = ? WHERE id = ?`,
		quantity, quantity, nowUTC(), itemID)
	if err != nil {
		return s.queryErr(ctx, "update cart item quantity", err, "cart_item_id", itemID)
	}
	return requireAffected(res, fmt.Sprintf("cart item %d", itemID))
}

func (s *sqlxStore) RemoveCartItem(ctx context.Context, itemID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, itemID)
	if err != nil {
		return s.queryErr(ctx, "remove cart item", err, "cart_item_id", itemID)
	}
	return requireAffected(res, fmt.Sprintf("cart item %d", itemID))
}

func (s *sqlxStore) ClearCart(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, s.queryErr(ctx, "clear cart", err, "session_id", sessionID)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
