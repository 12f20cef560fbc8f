package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studio/api/internal/service"
)

type invoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type invoiceRequest struct {
	UserID      string               `json:"userId"`
	BookingID   string               `json:"bookingId"`
	Amount      float64              `json:"amount"`
	Description string               `json:"description"`
	DueDate     string               `json:"dueDate"`
	Status      string               `json:"status"`
	Items       []invoiceItemRequest `json:"items"`
}

func (h HandlerSet) CreateInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed body")
		return
	}

	items := make([]service.InvoiceItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.InvoiceItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	invoice, err := h.invoices.Create(c.Request.Context(), identity(c), service.InvoiceInput{
		UserID:      req.UserID,
		BookingID:   req.BookingID,
		Amount:      req.Amount,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Items:       items,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvoiceResponse(invoice))
}

func (h HandlerSet) ListInvoices(c *gin.Context) {
	invoices, err := h.invoices.List(c.Request.Context(), identity(c), c.Query("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(invoices, toInvoiceResponse))
}

func (h HandlerSet) UpdateInvoiceStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	invoice, err := h.invoices.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponse(invoice))
}
