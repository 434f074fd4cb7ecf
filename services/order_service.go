package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"canteen-service/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	selectCustomerIDQuery = "SELECT customer_id FROM customers WHERE name = ?"
	selectVendorIDQuery   = "SELECT vendor_id FROM vendors WHERE name = ?"
	selectItemQuery       = "SELECT item_id, Price FROM items WHERE item_name = ? AND vendor_username = ?"
	insertOrderQuery      = "INSERT INTO orders (customer_id, vendor_id, order_date, total_price, status) VALUES (?, ?, CURRENT_TIMESTAMP, ?, ?)"
	insertOrderItemQuery  = "INSERT INTO order_items (order_id, item_id, quantity, price) VALUES (?, ?, ?, ?)"
	orderHistoryQuery     = `
		SELECT o.order_id, o.order_date, o.total_price, o.status,
		       v.name, i.item_name, oi.quantity, oi.price
		FROM orders o
		JOIN vendors v ON o.vendor_id = v.vendor_id
		JOIN order_items oi ON o.order_id = oi.order_id
		JOIN items i ON oi.item_id = i.item_id
		WHERE o.customer_id = ?
		ORDER BY o.order_date DESC, o.order_id DESC`
	updateStatusQuery = `
		UPDATE orders o
		JOIN vendors v ON o.vendor_id = v.vendor_id
		SET o.status = ?
		WHERE o.order_id = ? AND v.name = ?`
	cancelPendingQuery = "UPDATE orders SET status = ? WHERE order_id = ? AND status = ?"
)

// EventPublisher receives order lifecycle events. Publishing is best effort.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent, priority uint8) error
	PublishDelayedEvent(ctx context.Context, event models.OrderEvent, delay time.Duration) error
}

type OrderOptions struct {
	// ItemConcurrency bounds concurrent item lookups for one order.
	ItemConcurrency      int
	EnforceCatalogTotals bool
	PendingTimeout       time.Duration
}

type OrderService struct {
	db        *sql.DB
	publisher EventPublisher
	opts      OrderOptions
	now       func() time.Time
}

func NewOrderService(db *sql.DB, publisher EventPublisher, opts OrderOptions) *OrderService {
	if opts.ItemConcurrency <= 0 {
		opts.ItemConcurrency = 1
	}
	return &OrderService{
		db:        db,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

type resolvedItem struct {
	line   models.OrderLine
	itemID int64
	price  float64
}

// CreateOrder persists one vendor group as an order plus one order item per
// line. Either every row is committed or none is.
func (s *OrderService) CreateOrder(ctx context.Context, req models.OrderRequest) (int64, error) {
	logger := slog.With("customer", req.CustomerID, "vendor", req.VendorID)

	if err := validateRequest(req); err != nil {
		return 0, err
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}

	customerID, err := s.resolveCustomer(ctx, req.CustomerID)
	if err != nil {
		return 0, err
	}

	vendorID, err := s.lookupID(ctx, selectVendorIDQuery, req.VendorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, stageErr(StageVendorResolved, "Vendor not found: "+req.VendorID, err)
		}
		return 0, stageErr(StageVendorResolved, "Failed to look up vendor", err)
	}

	items, err := s.resolveItems(ctx, req)
	if err != nil {
		return 0, err
	}

	if s.opts.EnforceCatalogTotals {
		declared := decimal.NewFromFloat(req.TotalPrice).Round(2)
		if want := catalogTotal(items); !want.Equal(declared) {
			return 0, stageErr(StageItemsProcessed,
				fmt.Sprintf("Declared total %s does not match %s", declared.StringFixed(2), want.StringFixed(2)), ErrTotalMismatch)
		}
	}

	orderID, err := s.insertOrder(ctx, customerID, vendorID, req, items)
	if err != nil {
		logger.Error("order rolled back", "error", err)
		return 0, err
	}

	logger.Info("order created", "order_id", orderID, "items", len(items))
	s.publishCreated(ctx, orderID, req)
	return orderID, nil
}

func validateRequest(req models.OrderRequest) error {
	switch {
	case strings.TrimSpace(req.CustomerID) == "":
		return stageErr(StageReceived, "customer_id is required", ErrValidation)
	case strings.TrimSpace(req.VendorID) == "":
		return stageErr(StageReceived, "vendor_id is required", ErrValidation)
	case len(req.Items) == 0:
		return stageErr(StageReceived, "Order must contain at least one item", ErrValidation)
	case req.Status != "" && !models.ValidStatus(req.Status):
		return stageErr(StageReceived, "Unknown order status: "+req.Status, ErrValidation)
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return stageErr(StageReceived, "Quantity must be positive for "+line.ItemName, ErrValidation)
		}
		if line.Price < 0 {
			return stageErr(StageReceived, "Price must not be negative for "+line.ItemName, ErrValidation)
		}
		if strings.TrimSpace(line.ItemName) == "" {
			return stageErr(StageReceived, "item_name is required", ErrValidation)
		}
	}
	return nil
}

func (s *OrderService) resolveCustomer(ctx context.Context, name string) (int64, error) {
	id, err := s.lookupID(ctx, selectCustomerIDQuery, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, stageErr(StageCustomerResolved, "Customer not found", err)
		}
		return 0, stageErr(StageCustomerResolved, "Failed to look up customer", err)
	}
	return id, nil
}

// lookupID runs an exact-match id query. No case folding or trimming.
func (s *OrderService) lookupID(ctx context.Context, query, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	return id, nil
}

// resolveItems looks up every line concurrently, at most ItemConcurrency at a
// time, and returns them in request order.
func (s *OrderService) resolveItems(ctx context.Context, req models.OrderRequest) ([]resolvedItem, error) {
	items := make([]resolvedItem, len(req.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ItemConcurrency)

	for i, line := range req.Items {
		g.Go(func() error {
			vendor := line.VendorUsername
			if vendor == "" {
				vendor = req.VendorID
			}

			var item resolvedItem
			err := s.db.QueryRowContext(gctx, selectItemQuery, line.ItemName, vendor).Scan(&item.itemID, &item.price)
			if errors.Is(err, sql.ErrNoRows) {
				return stageErr(StageItemsProcessed, "Item not found: "+line.ItemName, ErrNotFound)
			}
			if err != nil {
				return stageErr(StageItemsProcessed, "Failed to look up item "+line.ItemName,
					fmt.Errorf("%w: %w", ErrDatabase, err))
			}
			item.line = line
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *OrderService) insertOrder(ctx context.Context, customerID, vendorID int64, req models.OrderRequest, items []resolvedItem) (orderID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, stageErr(StageOrderCreated, "Failed to create order", fmt.Errorf("%w: %w", ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	res, err := tx.ExecContext(ctx, insertOrderQuery, customerID, vendorID, req.TotalPrice, req.Status)
	if err != nil {
		return 0, stageErr(StageOrderCreated, "Failed to create order", fmt.Errorf("%w: %w", ErrDatabase, err))
	}
	orderID, err = res.LastInsertId()
	if err != nil {
		return 0, stageErr(StageOrderCreated, "Failed to get order ID", fmt.Errorf("%w: %w", ErrDatabase, err))
	}

	for i, item := range items {
		if _, err = tx.ExecContext(ctx, insertOrderItemQuery, orderID, item.itemID, item.line.Quantity, item.line.Price); err != nil {
			cause := fmt.Errorf("%w: %w", ErrDatabase, err)
			if i > 0 {
				cause = fmt.Errorf("%w after %d of %d items: %w", ErrPartialFailure, i, len(items), cause)
			}
			return 0, stageErr(StageItemsProcessed, "Failed to create order items", cause)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, stageErr(StageItemsProcessed, "Transaction commit failed", fmt.Errorf("%w: %w", ErrDatabase, err))
	}
	return orderID, nil
}

// catalogTotal is the sum of catalog price times quantity, rounded to cents.
func catalogTotal(items []resolvedItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.price).Mul(decimal.NewFromInt(int64(item.line.Quantity))))
	}
	return total.Round(2)
}

func (s *OrderService) publishCreated(ctx context.Context, orderID int64, req models.OrderRequest) {
	if s.publisher == nil {
		return
	}

	event := models.OrderEvent{
		OrderID:  orderID,
		Customer: req.CustomerID,
		Vendor:   req.VendorID,
		Type:     "created",
		Status:   req.Status,
		Total:    req.TotalPrice,
		Occurred: s.now(),
	}

	var priority uint8 = 5
	if req.TotalPrice > 1000 {
		priority = 9
	}
	if err := s.publisher.PublishOrderEvent(ctx, event, priority); err != nil {
		slog.Warn("failed to publish order created event", "order_id", orderID, "error", err)
	}

	if s.opts.PendingTimeout > 0 {
		event.Type = "pending_timeout"
		if err := s.publisher.PublishDelayedEvent(ctx, event, s.opts.PendingTimeout); err != nil {
			slog.Warn("failed to schedule pending timeout", "order_id", orderID, "error", err)
		}
	}
}

// History returns the customer's orders, newest first, each with its items.
func (s *OrderService) History(ctx context.Context, username string) ([]models.OrderHistory, error) {
	customerID, err := s.resolveCustomer(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, orderHistoryQuery, customerID)
	if err != nil {
		return nil, stageErr(StageResponded, "Failed to fetch orders", fmt.Errorf("%w: %w", ErrDatabase, err))
	}
	defer rows.Close()

	var flat []models.OrderHistoryRow
	for rows.Next() {
		var r models.OrderHistoryRow
		if err := rows.Scan(&r.OrderID, &r.OrderDate, &r.TotalPrice, &r.Status,
			&r.VendorName, &r.ItemName, &r.Quantity, &r.ItemPrice); err != nil {
			return nil, stageErr(StageResponded, "Failed to fetch orders", fmt.Errorf("%w: %w", ErrDatabase, err))
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, stageErr(StageResponded, "Failed to fetch orders", fmt.Errorf("%w: %w", ErrDatabase, err))
	}

	return GroupOrderHistory(flat), nil
}

// GroupOrderHistory nests flat join rows by order id. Orders keep the order
// in which they first appear.
func GroupOrderHistory(rows []models.OrderHistoryRow) []models.OrderHistory {
	orders := make([]models.OrderHistory, 0)
	index := make(map[int64]int)

	for _, r := range rows {
		item := models.OrderHistoryItem{ItemName: r.ItemName, Quantity: r.Quantity, Price: r.ItemPrice}
		if i, ok := index[r.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
			continue
		}
		index[r.OrderID] = len(orders)
		orders = append(orders, models.OrderHistory{
			OrderID:    r.OrderID,
			OrderDate:  r.OrderDate,
			TotalPrice: r.TotalPrice,
			Status:     r.Status,
			VendorName: r.VendorName,
			Items:      []models.OrderHistoryItem{item},
		})
	}
	return orders
}

// UpdateStatus changes the status of an order owned by vendor.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, vendor, status string) error {
	if !models.ValidStatus(status) {
		return stageErr(StageReceived, "Unknown order status: "+status, ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, updateStatusQuery, status, orderID, vendor)
	if err != nil {
		return stageErr(StageOrderCreated, "Failed to update order", fmt.Errorf("%w: %w", ErrDatabase, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stageErr(StageOrderCreated, "Order not found or not owned by vendor", ErrNotFound)
	}

	if s.publisher != nil {
		var priority uint8 = 5
		if status == models.StatusCancelled {
			priority = 8
		}
		event := models.OrderEvent{OrderID: orderID, Vendor: vendor, Type: "status_updated", Status: status, Occurred: s.now()}
		if err := s.publisher.PublishOrderEvent(ctx, event, priority); err != nil {
			slog.Warn("failed to publish status event", "order_id", orderID, "error", err)
		}
	}
	return nil
}

// CancelIfPending cancels an order that is still pending. It reports whether
// the order was cancelled.
func (s *OrderService) CancelIfPending(ctx context.Context, orderID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, cancelPendingQuery, models.StatusCancelled, orderID, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	return n > 0, nil
}
