package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	FlightID       int64  `json:"flight_id"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	PassengerPhone string `json:"passenger_phone"`
}

type bookingResponse struct {
	ID             int64         `json:"id"`
	Reference      string        `json:"reference"`
	Status         string        `json:"status"`
	SeatLabel      string        `json:"seat_label"`
	PassengerName  string        `json:"passenger_name"`
	PassengerEmail string        `json:"passenger_email"`
	PassengerPhone string        `json:"passenger_phone"`
	CreatedAt      string        `json:"created_at"`
	Flight         domain.Flight `json:"flight"`
}

func toBookingResponse(d domain.BookingDetails) bookingResponse {
	return bookingResponse{
		ID:             d.ID,
		Reference:      d.Reference,
		Status:         string(d.Status),
		SeatLabel:      d.SeatLabel,
		PassengerName:  d.PassengerName,
		PassengerEmail: d.PassengerEmail,
		PassengerPhone: d.PassengerPhone,
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
		Flight:         d.Flight,
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	reservation, err := h.service.Reserve(c.Request.Context(), booking.ReserveInput{
		FlightID:       req.FlightID,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
		UserID:         currentUserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

func (h *BookingHandler) list(c *gin.Context) {
	list, err := h.service.ListBookings(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": lo.Map(list, func(d domain.BookingDetails, _ int) bookingResponse {
		return toBookingResponse(d)
	})})
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	details, err := h.service.GetBooking(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(*details))
}
