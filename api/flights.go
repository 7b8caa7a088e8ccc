package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/origins", h.origins)
	router.GET("/destinations", h.destinations)
	router.GET("/:id", h.get)
}

// list accepts origin, destination, date (YYYY-MM-DD) and passengers.
func (h *FlightHandler) list(c *gin.Context) {
	filter := domain.FlightFilter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}
	if date := c.Query("date"); date != "" {
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		filter.DepartsFrom = day
	}
	if p := c.Query("passengers"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			badRequest(c, "passengers must be a positive integer")
			return
		}
		filter.Passengers = n
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flights": list, "count": len(list)})
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) origins(c *gin.Context) {
	values, err := h.service.Origins(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"origins": values})
}

func (h *FlightHandler) destinations(c *gin.Context) {
	values, err := h.service.Destinations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destinations": values})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
