package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/api/internal/events"
	"studio/api/internal/models"
	"studio/api/internal/service/servicetest"
)

type invoiceFixture struct {
	svc      *InvoiceService
	invoices *servicetest.FakeInvoices
	events   *servicetest.FakePublisher
}

func newInvoiceFixture() *invoiceFixture {
	users := servicetest.NewFakeUsers()
	users.Put(models.User{ID: adminIdentity.UserID, Name: "Studio Admin", Email: "admin@studio.test", Role: models.UserRoleAdmin})
	users.Put(models.User{ID: clientIdentity.UserID, Name: "Ann Client", Email: "ann@example.com", Role: models.UserRoleClient})
	users.Put(models.User{ID: "client-2", Name: "Bob Client", Email: "bob@example.com", Role: models.UserRoleClient})

	f := &invoiceFixture{
		invoices: servicetest.NewFakeInvoices(),
		events:   &servicetest.FakePublisher{},
	}
	f.svc = NewInvoiceService(f.invoices, users, f.events, zerolog.Nop())
	clock := newTestClock()
	f.svc.now = clock.Now
	return f
}

func invoiceInput(userID string) InvoiceInput {
	return InvoiceInput{
		UserID:      userID,
		Description: "Spring portraits",
		DueDate:     "2026-04-01",
		Items: []InvoiceItemInput{
			{Description: "Session", Quantity: 1, UnitPrice: 150},
			{Description: "Prints", Quantity: 3, UnitPrice: 19.99},
		},
	}
}

func TestCreateInvoiceDerivesAmount(t *testing.T) {
	f := newInvoiceFixture()

	invoice, err := f.svc.Create(context.Background(), adminIdentity, invoiceInput(clientIdentity.UserID))
	require.NoError(t, err)
	assert.Equal(t, 209.97, invoice.Amount)
	assert.Equal(t, models.InvoiceStatusSent, invoice.Status)
	assert.Equal(t, "Studio Admin", invoice.AdminName)
	assert.Nil(t, invoice.BookingID)
	require.Len(t, invoice.Items, 2)
	assert.Equal(t, 59.97, invoice.Items[1].Total)
	assert.Equal(t, testEpoch, invoice.CreatedAt)
	assert.Equal(t, []string{events.InvoiceCreated}, f.events.Keys())
}

func TestCreateInvoiceAmountMustMatchItems(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	in := invoiceInput(clientIdentity.UserID)
	in.Amount = 200
	_, err := f.svc.Create(ctx, adminIdentity, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in.Amount = 209.97
	in.BookingID = "booking-1"
	in.Status = "draft"
	invoice, err := f.svc.Create(ctx, adminIdentity, in)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
	require.NotNil(t, invoice.BookingID)
	assert.Equal(t, "booking-1", *invoice.BookingID)
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, clientIdentity, invoiceInput(clientIdentity.UserID))
	assert.ErrorIs(t, err, ErrForbidden)

	cases := map[string]func(*InvoiceInput){
		"no user":        func(in *InvoiceInput) { in.UserID = "" },
		"unknown user":   func(in *InvoiceInput) { in.UserID = "ghost" },
		"bad due date":   func(in *InvoiceInput) { in.DueDate = "soon" },
		"bad status":     func(in *InvoiceInput) { in.Status = "void" },
		"negative":       func(in *InvoiceInput) { in.Amount = -5 },
		"empty item":     func(in *InvoiceInput) { in.Items[0].Description = "" },
		"zero quantity":  func(in *InvoiceInput) { in.Items[0].Quantity = 0 },
		"nothing billed": func(in *InvoiceInput) { in.Items = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := invoiceInput(clientIdentity.UserID)
			mutate(&in)
			_, err := f.svc.Create(ctx, adminIdentity, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Empty(t, f.events.Keys())
}

func TestCreateInvoiceWithoutItems(t *testing.T) {
	f := newInvoiceFixture()
	in := invoiceInput(clientIdentity.UserID)
	in.Items = nil
	in.Amount = 99.999

	invoice, err := f.svc.Create(context.Background(), adminIdentity, in)
	require.NoError(t, err)
	assert.Equal(t, 100.0, invoice.Amount)
	assert.Empty(t, invoice.Items)
}

func TestListAndUpdateInvoices(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	mine, err := f.svc.Create(ctx, adminIdentity, invoiceInput(clientIdentity.UserID))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, adminIdentity, invoiceInput("client-2"))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, clientIdentity, "client-2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	list, err = f.svc.List(ctx, adminIdentity, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.svc.UpdateStatus(ctx, clientIdentity, mine.ID, "paid")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, adminIdentity, mine.ID, "refunded")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.UpdateStatus(ctx, adminIdentity, "missing", "paid")
	assert.ErrorIs(t, err, ErrNotFound)

	paid, err := f.svc.UpdateStatus(ctx, adminIdentity, mine.ID, "PAID")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
}
