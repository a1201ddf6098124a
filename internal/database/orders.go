package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	OrderStatusPending   = "pending"
	PaymentStatusPending = "pending"

	defaultOrderLimit = 50
)

// newOrderNumber returns ORD-<yyyymmddhhmmss>-<suffix>; the suffix keeps
// numbers unique when two checkouts land in the same second.
func newOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102150405"), suffix)
}

func (s *sqlxStore) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("session_id cannot be empty")
	}
	if req.TaxAmount < 0 || req.DiscountAmount < 0 {
		return nil, fmt.Errorf("tax and discount must not be negative")
	}

	var orderID int64
	err := s.withTx(ctx, "checkout", func(tx *sqlx.Tx) error {
		var items []CartItem
		err := tx.SelectContext(ctx, &items, `SELECT `+cartItemColumns+`
			FROM cart_items ci JOIN products p ON ci.product_id = p.id
			WHERE ci.session_id = ?
			ORDER BY ci.id`, req.SessionID)
		if err != nil {
			return s.queryErr(ctx, "load cart for checkout", err, "session_id", req.SessionID)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		var total float64
		for _, it := range items {
			total += it.TotalPrice
		}
		final := total + req.TaxAmount - req.DiscountAmount
		if final < 0 {
			final = 0
		}

		ts := nowUTC()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (order_number, session_id, status, total_amount, tax_amount, discount_amount,
				final_amount, payment_status, payment_method, shipping_address, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newOrderNumber(ts), req.SessionID, OrderStatusPending, total, req.TaxAmount, req.DiscountAmount,
			final, PaymentStatusPending, req.PaymentMethod, req.ShippingAddress, req.Notes, ts, ts)
		if err != nil {
			return s.queryErr(ctx, "insert order", err, "session_id", req.SessionID)
		}
		if orderID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read order id: %w", err)
		}

		for _, it := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price, selected_size, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				orderID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice, it.SelectedSize, ts)
			if err != nil {
				return s.queryErr(ctx, "insert order item", err, "order_id", orderID, "product_id", it.ProductID)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, req.SessionID); err != nil {
			return s.queryErr(ctx, "clear cart after checkout", err, "session_id", req.SessionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Order created", "order_id", orderID, "session_id", req.SessionID)
	return s.GetOrder(ctx, orderID)
}

func (s *sqlxStore) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order
	err := s.db.GetContext(ctx, &order, `SELECT id, order_number, session_id, status, total_amount, tax_amount,
		discount_amount, final_amount, payment_status, payment_method, shipping_address, notes, created_at, updated_at
		FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, s.queryErr(ctx, "get order", err, "order_id", id)
	}

	order.Items = []OrderItem{}
	err = s.db.SelectContext(ctx, &order.Items, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name AS product_name, oi.quantity, oi.unit_price,
			oi.total_price, oi.selected_size, oi.created_at
		FROM order_items oi JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`, id)
	if err != nil {
		return nil, s.queryErr(ctx, "get order items", err, "order_id", id)
	}
	return &order, nil
}

func (s *sqlxStore) ListOrders(ctx context.Context, sessionID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultOrderLimit
	}

	query := `SELECT id, order_number, session_id, status, total_amount, tax_amount, discount_amount,
		final_amount, payment_status, payment_method, shipping_address, notes, created_at, updated_at
		FROM orders`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	orders := []Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, s.queryErr(ctx, "list orders", err, "session_id", sessionID)
	}
	return orders, nil
}
