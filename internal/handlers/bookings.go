package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studio/api/internal/middleware"
	"studio/api/internal/service"
)

// bookingRequest has no status field: new bookings are always pending.
type bookingRequest struct {
	CustomerName        string `json:"customerName"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	ServiceType         string `json:"serviceType"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	Location            string `json:"location"`
	SpecialInstructions string `json:"specialInstructions"`
	BookingType         string `json:"bookingType"`
	Category            string `json:"category"`
}

func (h HandlerSet) CreateBooking(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed body")
		return
	}

	var caller *service.Identity
	if id, ok := middleware.CurrentIdentity(c); ok {
		caller = &id
	}

	category := req.BookingType
	if category == "" {
		category = req.Category
	}

	booking, err := h.bookings.Create(c.Request.Context(), caller, service.BookingInput{
		CustomerName:        req.CustomerName,
		Email:               req.Email,
		Phone:               req.Phone,
		ServiceType:         req.ServiceType,
		Date:                req.Date,
		Time:                req.Time,
		Location:            req.Location,
		SpecialInstructions: req.SpecialInstructions,
		Category:            category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(booking))
}

func (h HandlerSet) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.List(c.Request.Context(), identity(c), c.Query("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(bookings, toBookingResponse))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) UpdateBookingStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	booking, err := h.bookings.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}
