package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"canteen-service/middlewares"
	"canteen-service/models"
	"canteen-service/services"

	"github.com/gin-gonic/gin"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req models.OrderRequest) (int64, error)
	History(ctx context.Context, username string) ([]models.OrderHistory, error)
	UpdateStatus(ctx context.Context, orderID int64, vendor, status string) error
}

type OrderController struct {
	orders OrderService
}

func NewOrderController(orders OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Ping answers GET /orders/create so clients can check the order API is up.
func (oc *OrderController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Orders API is working"})
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer func() {
		status := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("create", status)
	}()
	logger := middlewares.Logger(c)

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.OrderResponse{Message: "Invalid order payload", Error: err.Error()})
		return
	}

	if username, ok := middlewares.Username(c); ok && username != req.CustomerID {
		c.JSON(http.StatusForbidden, models.OrderResponse{Message: "Cannot place orders for another customer"})
		return
	}

	orderID, err := oc.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		status, resp := orderFailure(err)
		logger.Warn("order creation failed", "customer", req.CustomerID, "vendor", req.VendorID, "error", err)
		middlewares.RecordOrderFailure(resp.Error)
		c.JSON(status, resp)
		return
	}

	middlewares.RecordOrderItems(len(req.Items))
	c.JSON(http.StatusCreated, models.OrderResponse{
		Success: true,
		Message: "Order created successfully",
		OrderID: orderID,
	})
}

// orderFailure maps an assembly error to a status code and a response naming
// the failed stage.
func orderFailure(err error) (int, models.OrderResponse) {
	resp := models.OrderResponse{Message: "Failed to create order", Error: "unknown"}

	var se *services.StageError
	if errors.As(err, &se) {
		resp.Message = se.Message
		resp.Error = string(se.Stage)
	}

	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrTotalMismatch):
		return http.StatusBadRequest, resp
	case errors.Is(err, services.ErrNotFound):
		return http.StatusBadRequest, resp
	default:
		return http.StatusInternalServerError, resp
	}
}

func (oc *OrderController) GetCustomerOrders(c *gin.Context) {
	defer func() {
		status := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("history", status)
	}()

	customer := c.Param("username")
	if username, ok := middlewares.Username(c); ok && username != customer {
		c.JSON(http.StatusForbidden, models.OrderHistoryResponse{Message: "Cannot read another customer's orders"})
		return
	}

	orders, err := oc.orders.History(c.Request.Context(), customer)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.OrderHistoryResponse{Message: "Customer not found"})
			return
		}
		middlewares.Logger(c).Error("order history failed", "customer", customer, "error", err)
		c.JSON(http.StatusInternalServerError, models.OrderHistoryResponse{Message: "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, models.OrderHistoryResponse{Success: true, Orders: orders})
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	defer func() {
		status := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("update_status", status)
	}()

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order ID"})
		return
	}

	var request struct {
		Status string `json:"status" binding:"required,oneof=pending preparing ready completed cancelled"`
		Vendor string `json:"vendor"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	vendor, ok := middlewares.Username(c)
	if !ok {
		vendor = request.Vendor
	}
	if vendor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "vendor is required"})
		return
	}

	err = oc.orders.UpdateStatus(c.Request.Context(), orderID, vendor, request.Status)
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found or not authorized"})
	case err != nil:
		middlewares.Logger(c).Error("status update failed", "order_id", orderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated", "order_id": orderID})
	}
}

// HandleDeadLetter accepts dead-lettered order events forwarded by operators.
func (oc *OrderController) HandleDeadLetter(c *gin.Context) {
	defer func() {
		status := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("dead_letter", status)
	}()

	var deadLetter struct {
		OrderID int64  `json:"order_id"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&deadLetter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	middlewares.Logger(c).Warn("dead letter received", "order_id", deadLetter.OrderID, "reason", deadLetter.Reason)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Dead letter processed"})
}
