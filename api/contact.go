package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/service/contact"
	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	service contact.ContactUseCase
}

func NewContactHandler(service contact.ContactUseCase) *ContactHandler {
	return &ContactHandler{service: service}
}

func (h *ContactHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.submit)
}

func (h *ContactHandler) submit(c *gin.Context) {
	var req contact.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "message received"})
}
