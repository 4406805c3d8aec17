package postgres

import (
	"context"
	"database/sql"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/apperr"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/order"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const orderSelect = `
	SELECT o.id, o.account_id, o.total_price, o.delivery_fee, o.status, o.delivery_type,
		o.delivery_address, o.pickup_datetime, o.phone, o.notes, o.idempotency_key,
		o.created_at, o.updated_at, u.name, u.email, u.phone
	FROM orders o
	LEFT JOIN accounts u ON u.id = o.account_id`

const orderItemsSelect = `
	SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.price,
		m.name, m.description, m.image, m.category
	FROM order_items oi
	LEFT JOIN catalog_items m ON m.id = oi.menu_item_id
	WHERE oi.order_id = ANY($1)
	ORDER BY oi.order_id, oi.position`

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                                 order.Order
		id, accountID                     int64
		pickup                            sql.NullTime
		idemKey                           sql.NullString
		ownerName, ownerEmail, ownerPhone sql.NullString
	)
	err := row.Scan(
		&id, &accountID, &o.TotalPrice, &o.DeliveryFee, &o.Status, &o.FulfillmentMode,
		&o.DeliveryAddress, &pickup, &o.Phone, &o.Notes, &idemKey,
		&o.CreatedAt, &o.UpdatedAt, &ownerName, &ownerEmail, &ownerPhone,
	)
	if err != nil {
		return nil, err
	}

	o.ID = formatID(id)
	o.AccountID = formatID(accountID)
	o.IdempotencyKey = idemKey.String
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	if pickup.Valid {
		t := pickup.Time.UTC()
		o.PickupDateTime = &t
	}
	if ownerName.Valid {
		o.Customer = &account.Summary{
			ID:    o.AccountID,
			Name:  ownerName.String,
			Email: ownerEmail.String,
			Phone: ownerPhone.String,
		}
	}
	o.Items = []order.LineItem{}
	return &o, nil
}

// loadItems attaches line items, in insertion order, to orders.
func (s *Store) loadItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*order.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		key, _ := parseID(o.ID)
		ids = append(ids, key)
		byID[o.ID] = o
	}

	rows, err := s.db.QueryContext(ctx, orderItemsSelect, pq.Array(ids))
	if err != nil {
		return translate(err, "load order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			li                          order.LineItem
			id, orderID, itemID         int64
			name, desc, image, category sql.NullString
		)
		if err := rows.Scan(&id, &orderID, &itemID, &li.Quantity, &li.UnitPrice, &name, &desc, &image, &category); err != nil {
			return translate(err, "scan order item")
		}
		li.ID = formatID(id)
		li.CatalogItemID = formatID(itemID)
		if name.Valid {
			li.Item = &catalog.Summary{
				ID:          li.CatalogItemID,
				Name:        name.String,
				Description: desc.String,
				Image:       image.String,
				Category:    category.String,
			}
		}
		if o, ok := byID[formatID(orderID)]; ok {
			o.Items = append(o.Items, li)
		}
	}
	if err := rows.Err(); err != nil {
		return translate(err, "load order items")
	}
	return nil
}

func (s *Store) queryOrders(ctx context.Context, op, query string, args ...any) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op)
	}

	var ptrs []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, translate(err, op)
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, translate(err, op)
	}
	rows.Close()

	if err := s.loadItems(ctx, ptrs); err != nil {
		return nil, err
	}

	out := make([]order.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

func (s *Store) findOrder(ctx context.Context, op, where string, args ...any) (*order.Order, error) {
	orders, err := s.queryOrders(ctx, op, orderSelect+" WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// CreateOrder inserts the order and every line item in one transaction.
func (s *Store) CreateOrder(ctx context.Context, o order.Order) (*order.Order, error) {
	accountID, ok := parseID(o.AccountID)
	if !ok {
		return nil, apperr.Invalid("unknown account %s", o.AccountID)
	}
	itemIDs := make([]int64, len(o.Items))
	for i, li := range o.Items {
		key, ok := parseID(li.CatalogItemID)
		if !ok {
			return nil, apperr.Invalid("unknown_item: menu item %s does not exist", li.CatalogItemID)
		}
		itemIDs[i] = key
	}

	var pickup sql.NullTime
	if o.PickupDateTime != nil {
		pickup = sql.NullTime{Time: o.PickupDateTime.UTC(), Valid: true}
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(err, "begin order tx")
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			account_id, total_price, delivery_fee, status, delivery_type,
			delivery_address, pickup_datetime, phone, notes, idempotency_key,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`,
		accountID, o.TotalPrice, o.DeliveryFee, o.Status, o.FulfillmentMode,
		o.DeliveryAddress, pickup, o.Phone, o.Notes, nullString(o.IdempotencyKey),
		now, now,
	).Scan(&id)
	if err != nil {
		return nil, translate(err, "insert order")
	}

	for i, li := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, menu_item_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, id, i+1, itemIDs[i], li.Quantity, li.UnitPrice)
		if err != nil {
			return nil, translate(err, "insert order item")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, translate(err, "commit order tx")
	}

	created, err := s.FindOrderByID(ctx, formatID(id))
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, apperr.NotFound("order not found")
	}
	return created, nil
}

func (s *Store) FindOrderByID(ctx context.Context, id string) (*order.Order, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return s.findOrder(ctx, "find order", "o.id = $1", key)
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, accountID, key string) (*order.Order, error) {
	acct, ok := parseID(accountID)
	if !ok || key == "" {
		return nil, nil
	}
	return s.findOrder(ctx, "find order by idempotency key",
		"o.account_id = $1 AND o.idempotency_key = $2", acct, key)
}

func (s *Store) ListOrdersByAccount(ctx context.Context, accountID string) ([]order.Order, error) {
	acct, ok := parseID(accountID)
	if !ok {
		return []order.Order{}, nil
	}
	return s.queryOrders(ctx, "list account orders",
		orderSelect+" WHERE o.account_id = $1 ORDER BY o.created_at DESC, o.id DESC", acct)
}

func (s *Store) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	return s.queryOrders(ctx, "list orders", orderSelect+" ORDER BY o.created_at DESC, o.id DESC")
}

// SetOrderStatus only writes when the stored status still equals from.
func (s *Store) SetOrderStatus(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, apperr.NotFound("order not found")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, key, from, to, time.Now().UTC())
	if err != nil {
		return nil, translate(err, "set order status")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, translate(err, "set order status")
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, key).Scan(&exists); err != nil {
			return nil, translate(err, "set order status")
		}
		if !exists {
			return nil, apperr.NotFound("order not found")
		}
		return nil, apperr.Conflict("order status is no longer %s", from)
	}

	updated, err := s.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("order not found")
	}
	return updated, nil
}

func (s *Store) OrderStatistics(ctx context.Context) (*order.Statistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_price), 0)
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, translate(err, "order statistics")
	}
	defer rows.Close()

	st := order.NewStatistics()
	for rows.Next() {
		var (
			status order.Status
			count  int
			sum    decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, translate(err, "scan order statistics")
		}
		st.Total += count
		st.ByStatus[status] += count
		if status != order.StatusCancelled {
			st.Revenue = st.Revenue.Add(sum)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "order statistics")
	}
	return st, nil
}
