package models

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// OrderRequest is one vendor group submitted at checkout. Customer and
// vendor are display names, resolved to ids by the server.
type OrderRequest struct {
	CustomerID string      `json:"customer_id"`
	VendorID   string      `json:"vendor_id"`
	TotalPrice float64     `json:"total_price"`
	Status     string      `json:"status"`
	Items      []OrderLine `json:"items"`
}

type OrderLine struct {
	ID             string  `json:"id"`
	Quantity       int     `json:"quantity"`
	Price          float64 `json:"Price"`
	VendorUsername string  `json:"vendor_username"`
	ItemName       string  `json:"item_name"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Order is the persisted order row.
type Order struct {
	ID         int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	VendorID   int64     `json:"vendor_id"`
	OrderDate  time.Time `json:"order_date"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
}

// OrderHistoryRow is one flat row of the history join.
type OrderHistoryRow struct {
	OrderID    int64
	OrderDate  time.Time
	TotalPrice float64
	Status     string
	VendorName string
	ItemName   string
	Quantity   int
	ItemPrice  float64
}

type OrderHistory struct {
	OrderID    int64              `json:"order_id"`
	OrderDate  time.Time          `json:"order_date"`
	TotalPrice float64            `json:"total_price"`
	Status     string             `json:"status"`
	VendorName string             `json:"vendor_name"`
	Items      []OrderHistoryItem `json:"items"`
}

type OrderHistoryItem struct {
	ItemName string  `json:"item_name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type OrderHistoryResponse struct {
	Success bool           `json:"success"`
	Orders  []OrderHistory `json:"orders"`
	Message string         `json:"message,omitempty"`
}

type OrderEvent struct {
	OrderID  int64     `json:"order_id"`
	Customer string    `json:"customer"`
	Vendor   string    `json:"vendor"`
	Type     string    `json:"type"` // created, status_updated, pending_timeout
	Status   string    `json:"status"`
	Total    float64   `json:"total"`
	Occurred time.Time `json:"occurred"`
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
