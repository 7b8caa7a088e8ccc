package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type paymentRequest struct {
	BookingID     int64  `json:"booking_id"`
	PaymentMethod string `json:"payment_method"`
	CardNumber    string `json:"card_number"`
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.pay)
}

func (h *PaymentHandler) pay(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.service.Finalize(c.Request.Context(), payment.FinalizeInput{
		BookingID:     req.BookingID,
		PaymentMethod: req.PaymentMethod,
		CardNumber:    req.CardNumber,
		UserID:        currentUserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
