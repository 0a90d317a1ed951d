package controller

import (
	"errors"

	"vibtrix/client"
	"vibtrix/repository"
	"vibtrix/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaymentController struct {
	paymentService *service.PaymentService
}

func NewPaymentController(db *gorm.DB, razorpayClient *client.RazorpayClient) *PaymentController {
	return &PaymentController{
		paymentService: service.NewPaymentService(db, razorpayClient),
	}
}

func setupPaymentController(db *gorm.DB, razorpayClient *client.RazorpayClient) []RouteInfo {
	e := NewPaymentController(db, razorpayClient)
	basePath := "/payments"
	routes := []RouteInfo{
		{Method: "POST", Path: "/orders", HandlerFunc: e.createOrderHandler(), Authenticated: true},
		{Method: "POST", Path: "/verify", HandlerFunc: e.verifyPaymentHandler(), Authenticated: true},
	}
	for i, route := range routes {
		routes[i].Path = basePath + route.Path
	}
	return routes
}

// @Description Creates a payment order for a paid competition's entry fee
// @Tags payment
// @Accept json
// @Produce json
// @Param order body OrderCreate true "Competition to pay for"
// @Success 201 {object} PaymentResponse
// @Security BearerAuth
// @Router /payments/orders [post]
func (e *PaymentController) createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var orderCreate OrderCreate
		if err := c.BindJSON(&orderCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		payment, err := e.paymentService.CreateOrder(userIdFromContext(c), orderCreate.CompetitionId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": "Competition not found"})
			} else {
				c.JSON(400, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(201, toPaymentResponse(payment))
	}
}

// @Description Verifies a checkout callback and marks the payment completed
// @Tags payment
// @Accept json
// @Produce json
// @Param verification body PaymentVerification true "Checkout callback fields"
// @Success 200 {object} PaymentResponse
// @Security BearerAuth
// @Router /payments/verify [post]
func (e *PaymentController) verifyPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var verification PaymentVerification
		if err := c.BindJSON(&verification); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		payment, err := e.paymentService.VerifyPayment(verification.OrderId, verification.PaymentId, verification.Signature)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, toPaymentResponse(payment))
	}
}

type OrderCreate struct {
	CompetitionId string `json:"competition_id" binding:"required"`
}

type PaymentVerification struct {
	OrderId   string `json:"order_id" binding:"required"`
	PaymentId string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type PaymentResponse struct {
	Id              string                   `json:"id"`
	CompetitionId   string                   `json:"competition_id"`
	RazorpayOrderId string                   `json:"razorpay_order_id"`
	Amount          int                      `json:"amount"`
	Status          repository.PaymentStatus `json:"status"`
}

func toPaymentResponse(payment *repository.Payment) PaymentResponse {
	return PaymentResponse{
		Id:              payment.Id,
		CompetitionId:   payment.CompetitionId,
		RazorpayOrderId: payment.RazorpayOrderId,
		Amount:          payment.Amount,
		Status:          payment.Status,
	}
}
