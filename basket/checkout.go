package basket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"canteen-service/models"
)

var (
	ErrNotLoggedIn = errors.New("please login first")
	ErrEmptyBasket = errors.New("basket is empty")
)

// Session is the logged-in client identity used at checkout.
type Session struct {
	Username string
	Token    string
}

type OrderSender interface {
	CreateOrder(ctx context.Context, session Session, req models.OrderRequest) (int64, error)
}

// Submitted records a vendor group the server accepted.
type Submitted struct {
	Vendor  string
	OrderID int64
}

// CheckoutError reports the vendor group that failed. Groups in Submitted were
// already accepted by the server and stay committed.
type CheckoutError struct {
	Vendor    string
	Submitted []Submitted
	Err       error
}

func (e *CheckoutError) Error() string {
	if len(e.Submitted) == 0 {
		return fmt.Sprintf("failed to submit order for %s: %v", e.Vendor, e.Err)
	}
	vendors := make([]string, len(e.Submitted))
	for i, s := range e.Submitted {
		vendors[i] = s.Vendor
	}
	return fmt.Sprintf("failed to submit order for %s (already placed: %s): %v",
		e.Vendor, strings.Join(vendors, ", "), e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// BuildRequest turns one vendor group into an order request.
func BuildRequest(session Session, group Group) models.OrderRequest {
	req := models.OrderRequest{
		CustomerID: session.Username,
		VendorID:   group.Vendor,
		TotalPrice: group.Total(),
		Status:     models.StatusPending,
		Items:      make([]models.OrderLine, 0, len(group.Lines)),
	}
	for _, l := range group.Lines {
		req.Items = append(req.Items, models.OrderLine{
			ID:             l.ID,
			Quantity:       l.Quantity,
			Price:          l.Price,
			VendorUsername: l.VendorUsername,
			ItemName:       l.ItemName,
		})
	}
	return req
}

// Checkout submits one order per vendor group, one group at a time, and stops
// at the first failure. On success the submitted quantities are taken off the
// basket; on failure the basket is left as it was.
func (b *Basket) Checkout(ctx context.Context, session Session, sender OrderSender) ([]Submitted, error) {
	if strings.TrimSpace(session.Username) == "" {
		return nil, ErrNotLoggedIn
	}

	lines := b.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyBasket
	}

	var submitted []Submitted
	for _, group := range groupByVendor(lines) {
		if err := ctx.Err(); err != nil {
			return submitted, &CheckoutError{Vendor: group.Vendor, Submitted: submitted, Err: err}
		}

		orderID, err := sender.CreateOrder(ctx, session, BuildRequest(session, group))
		if err != nil {
			return submitted, &CheckoutError{Vendor: group.Vendor, Submitted: submitted, Err: err}
		}
		submitted = append(submitted, Submitted{Vendor: group.Vendor, OrderID: orderID})
	}

	quantities := make(map[string]int, len(lines))
	for _, l := range lines {
		quantities[l.ID] = l.Quantity
	}
	b.removeSubmitted(quantities)
	return submitted, nil
}
