package handlers

import (
	"time"

	"studio/api/internal/models"
)

const dateLayout = "2006-01-02"

// userResponse is the public projection of a user: no hashes, codes or
// reset tokens.
type userResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Role             string    `json:"role"`
	ProfileCompleted bool      `json:"profileCompleted"`
	Verified         bool      `json:"verified"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		Role:             string(u.Role),
		ProfileCompleted: u.ProfileCompleted,
		Verified:         u.Verified,
		CreatedAt:        u.CreatedAt,
	}
}

type bookingResponse struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	CustomerName        string    `json:"customerName"`
	Email               string    `json:"email"`
	Phone               string    `json:"phone"`
	ServiceType         string    `json:"serviceType"`
	Date                string    `json:"date"`
	Time                string    `json:"time,omitempty"`
	Location            string    `json:"location"`
	SpecialInstructions string    `json:"specialInstructions,omitempty"`
	BookingType         string    `json:"bookingType"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func toBookingResponse(b models.Booking) bookingResponse {
	return bookingResponse{
		ID:                  b.ID,
		UserID:              b.UserID,
		CustomerName:        b.CustomerName,
		Email:               b.Email,
		Phone:               b.Phone,
		ServiceType:         b.ServiceType,
		Date:                b.Date.Format(dateLayout),
		Time:                b.Time,
		Location:            b.Location,
		SpecialInstructions: b.SpecialInstructions,
		BookingType:         string(b.Category),
		Status:              string(b.Status),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

type galleryResponse struct {
	ID          string         `json:"id"`
	UserIDs     []string       `json:"userIds"`
	AdminID     string         `json:"adminId"`
	Title       string         `json:"title"`
	Photos      []models.Photo `json:"photos"`
	PublicToken string         `json:"publicToken"`
	ExpiresAt   *time.Time     `json:"expiresAt"`
	AutoDelete  bool           `json:"autoDelete"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toGalleryResponse(g models.Gallery) galleryResponse {
	photos := g.Photos
	if photos == nil {
		photos = []models.Photo{}
	}
	return galleryResponse{
		ID:          g.ID,
		UserIDs:     g.UserIDs,
		AdminID:     g.AdminID,
		Title:       g.Title,
		Photos:      photos,
		PublicToken: g.PublicToken,
		ExpiresAt:   g.ExpiresAt,
		AutoDelete:  g.AutoDelete,
		CreatedAt:   g.CreatedAt,
	}
}

// publicGalleryResponse is what a share-link holder sees. Recipient ids and
// the owning admin stay private.
type publicGalleryResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Photos    []models.Photo `json:"photos"`
	ExpiresAt *time.Time     `json:"expiresAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

type invoiceResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	BookingID   *string              `json:"bookingId"`
	AdminName   string               `json:"adminName"`
	Amount      float64              `json:"amount"`
	Description string               `json:"description"`
	DueDate     string               `json:"dueDate"`
	Status      string               `json:"status"`
	Items       []models.InvoiceItem `json:"items"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func toInvoiceResponse(inv models.Invoice) invoiceResponse {
	items := inv.Items
	if items == nil {
		items = []models.InvoiceItem{}
	}
	return invoiceResponse{
		ID:          inv.ID,
		UserID:      inv.UserID,
		BookingID:   inv.BookingID,
		AdminName:   inv.AdminName,
		Amount:      inv.Amount,
		Description: inv.Description,
		DueDate:     inv.DueDate.Format(dateLayout),
		Status:      string(inv.Status),
		Items:       items,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
