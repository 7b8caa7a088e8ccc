package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/receipt"
	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	service receipt.ReceiptUseCase
}

type receiptResponse struct {
	ReceiptID         int64  `json:"receipt_id"`
	ReceiptNumber     string `json:"receipt_number"`
	GeneratedAt       string `json:"generated_at"`
	ArtifactAvailable bool   `json:"artifact_available"`
	BookingID         int64  `json:"booking_id"`
	Reference         string `json:"reference"`
	PassengerName     string `json:"passenger_name"`
	SeatLabel         string `json:"seat_label"`
	FlightNumber      string `json:"flight_number"`
	Origin            string `json:"origin"`
	Destination       string `json:"destination"`
	DepartureTime     string `json:"departure_time"`
	AmountCents       int64  `json:"amount_cents"`
	PaymentMethod     string `json:"payment_method"`
	TransactionID     string `json:"transaction_id"`
}

func toReceiptResponse(r *domain.ReceiptRecord) receiptResponse {
	return receiptResponse{
		ReceiptID:         r.ReceiptID,
		ReceiptNumber:     r.ReceiptNumber,
		GeneratedAt:       r.GeneratedAt.Format(time.RFC3339),
		ArtifactAvailable: r.ArtifactPath != "",
		BookingID:         r.BookingID,
		Reference:         r.Reference,
		PassengerName:     r.PassengerName,
		SeatLabel:         r.SeatLabel,
		FlightNumber:      r.FlightNumber,
		Origin:            r.Origin,
		Destination:       r.Destination,
		DepartureTime:     r.DepartureTime.Format(time.RFC3339),
		AmountCents:       r.AmountCents,
		PaymentMethod:     r.PaymentMethod,
		TransactionID:     r.TransactionID,
	}
}

func NewReceiptHandler(service receipt.ReceiptUseCase) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// Register mounts the receipt routes under a booking group.
func (h *ReceiptHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id/receipt", h.get)
	router.GET("/:id/receipt/download", h.download)
}

func (h *ReceiptHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	record, err := h.service.GetReceipt(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(record))
}

func (h *ReceiptHandler) download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.service.Download(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.FileAttachment(file.Path, file.FileName)
}
