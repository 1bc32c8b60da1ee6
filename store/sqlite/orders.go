package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is one stage in the order lifecycle.
type OrderStatus string

const (
	// OrderPlaced is the initial status of every order.
	OrderPlaced OrderStatus = "placed"
	// OrderPreparing means the restaurant accepted the order.
	OrderPreparing OrderStatus = "preparing"
	// OrderInTransit means the order left the restaurant.
	OrderInTransit OrderStatus = "in_transit"
	// OrderDelivered is a terminal success status.
	OrderDelivered OrderStatus = "delivered"
	// OrderCancelled is a terminal failure status.
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions is the allowed lifecycle. Terminal statuses have no
// outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:    {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderInTransit, OrderCancelled},
	OrderInTransit: {OrderDelivered},
}

func transitionAllowed(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is one customer order with its current lifecycle status.
type Order struct {
	OrderID    string
	CustomerID string
	Restaurant string
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TraceEvent is one link in an order's traceability chain.
type TraceEvent struct {
	EventID    string
	OrderID    string
	Stage      string
	Location   string
	Actor      string
	RecordedAt time.Time
}

// CreateOrder inserts a new placed order and its first trace event in
// one transaction.
func (s *Store) CreateOrder(ctx context.Context, customerID, restaurant, actor string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	customerID = strings.TrimSpace(customerID)
	restaurant = strings.TrimSpace(restaurant)
	if customerID == "" {
		return Order{}, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	if restaurant == "" {
		return Order{}, fmt.Errorf("%w: restaurant is required", ErrInvalidInput)
	}
	if actor == "" {
		actor = customerID
	}

	now := time.Now().UTC()
	order := Order{
		OrderID:    uuid.NewString(),
		CustomerID: customerID,
		Restaurant: restaurant,
		Status:     OrderPlaced,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO orders (order_id, customer_id, restaurant, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.CustomerID, order.Restaurant, string(order.Status),
		toMillis(order.CreatedAt), toMillis(order.UpdatedAt),
	); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := insertTraceEvent(ctx, tx, order.OrderID, string(OrderPlaced), "", actor, now); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// GetOrder returns one order by ID.
func (s *Store) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		orderSelectColumns+" WHERE order_id = ?",
		strings.TrimSpace(orderID),
	)
	return scanOrder(row.Scan)
}

// ListOrders returns the most recent orders, newest first. When
// customerID is non-empty the result is restricted to that customer.
func (s *Store) ListOrders(ctx context.Context, customerID string, limit int) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := orderSelectColumns
	args := []any{}
	if customerID = strings.TrimSpace(customerID); customerID != "" {
		query += " WHERE customer_id = ?"
		args = append(args, customerID)
	}
	query += " ORDER BY created_at DESC, order_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// AdvanceOrderStatus moves an order to the next lifecycle status and
// records the transition in the trace chain. Transitions outside the
// lifecycle yield ErrInvalidTransition.
func (s *Store) AdvanceOrderStatus(ctx context.Context, orderID string, next OrderStatus, actor, location string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return Order{}, fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("advance order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, orderSelectColumns+" WHERE order_id = ?", orderID)
	order, err := scanOrder(row.Scan)
	if err != nil {
		return Order{}, err
	}

	if !transitionAllowed(order.Status, next) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(
		ctx,
		"UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?",
		string(next), toMillis(now), orderID,
	); err != nil {
		return Order{}, fmt.Errorf("advance order: %w", err)
	}

	if err := insertTraceEvent(ctx, tx, orderID, string(next), location, actor, now); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("advance order: %w", err)
	}

	order.Status = next
	order.UpdatedAt = now
	return order, nil
}

// AppendTraceEvent records an annotation on the order's trace chain
// without changing the order status.
func (s *Store) AppendTraceEvent(ctx context.Context, orderID, stage, location, actor string) (TraceEvent, error) {
	if err := ctx.Err(); err != nil {
		return TraceEvent{}, err
	}
	orderID = strings.TrimSpace(orderID)
	stage = strings.TrimSpace(stage)
	actor = strings.TrimSpace(actor)
	if stage == "" {
		return TraceEvent{}, fmt.Errorf("%w: stage is required", ErrInvalidInput)
	}
	if actor == "" {
		return TraceEvent{}, fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}

	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return TraceEvent{}, err
	}

	now := time.Now().UTC()
	event := TraceEvent{
		EventID:    uuid.NewString(),
		OrderID:    orderID,
		Stage:      stage,
		Location:   location,
		Actor:      actor,
		RecordedAt: now,
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO trace_events (event_id, order_id, stage, location, actor, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.EventID, event.OrderID, event.Stage, event.Location, event.Actor, toMillis(now),
	); err != nil {
		return TraceEvent{}, fmt.Errorf("append trace event: %w", err)
	}
	return event, nil
}

// TraceChain returns an order's trace events oldest first.
func (s *Store) TraceChain(ctx context.Context, orderID string) ([]TraceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT event_id, order_id, stage, location, actor, recorded_at
		   FROM trace_events
		  WHERE order_id = ?
		  ORDER BY recorded_at, rowid`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("trace chain: %w", err)
	}
	defer rows.Close()

	var events []TraceEvent
	for rows.Next() {
		var event TraceEvent
		var recordedAt int64
		if err := rows.Scan(
			&event.EventID,
			&event.OrderID,
			&event.Stage,
			&event.Location,
			&event.Actor,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("trace chain: %w", err)
		}
		event.RecordedAt = fromMillis(recordedAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace chain: %w", err)
	}
	return events, nil
}

func insertTraceEvent(ctx context.Context, tx *sql.Tx, orderID, stage, location, actor string, at time.Time) error {
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO trace_events (event_id, order_id, stage, location, actor, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), orderID, stage, location, actor, toMillis(at),
	); err != nil {
		return fmt.Errorf("record trace event: %w", err)
	}
	return nil
}

const orderSelectColumns = `SELECT order_id, customer_id, restaurant, status, created_at, updated_at
  FROM orders`

func scanOrder(scan func(dest ...any) error) (Order, error) {
	var order Order
	var status string
	var createdAt int64
	var updatedAt int64
	err := scan(
		&order.OrderID,
		&order.CustomerID,
		&order.Restaurant,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	order.Status = OrderStatus(status)
	order.CreatedAt = fromMillis(createdAt)
	order.UpdatedAt = fromMillis(updatedAt)
	return order, nil
}
