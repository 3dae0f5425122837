package billing

import "time"

// PaymentStatus enumerates how much of a bill has been settled.
type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "UNPAID"
	StatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	StatusPaid          PaymentStatus = "PAID"
)

// Bill is the authoritative payment record derived from a finalized order.
// Collections mutate PaidAmount here; everything else reads from it.
type Bill struct {
	ID              string        `json:"id"`
	BillNumber      string        `json:"billNumber"`
	OrderID         string        `json:"orderId"`
	ShopID          string        `json:"shopId"`
	BookerID        string        `json:"bookerId"`
	SalesmanID      string        `json:"salesmanId,omitempty"`
	TotalAmount     float64       `json:"totalAmount"`
	PaidAmount      float64       `json:"paidAmount"`
	RemainingCredit float64       `json:"remainingCredit"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	BilledAt        time.Time     `json:"billedAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// StatusFor derives the payment status from paid versus total.
func StatusFor(paid, total float64) PaymentStatus {
	switch {
	case paid <= 0:
		return StatusUnpaid
	case paid < total:
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}

// Recalculate rederives RemainingCredit and PaymentStatus from the amounts.
func (b *Bill) Recalculate() {
	b.RemainingCredit = b.TotalAmount - b.PaidAmount
	if b.RemainingCredit < 0 {
		b.RemainingCredit = 0
	}
	b.PaymentStatus = StatusFor(b.PaidAmount, b.TotalAmount)
}

// Outstanding reports whether the bill still carries unpaid credit.
func (b *Bill) Outstanding() bool {
	return b.PaymentStatus != StatusPaid
}

// LoadFormItem is one confirmed product line on a load form.
type LoadFormItem struct {
	ProductID         string  `json:"productId"`
	Quantity          float64 `json:"quantity"`
	ConfirmedQuantity float64 `json:"confirmedQuantity"`
	UnitPrice         float64 `json:"unitPrice"`
}

// LoadForm is the warehouse picking document derived from a billed order.
type LoadForm struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"orderId"`
	BillID    string         `json:"billId"`
	ShopID    string         `json:"shopId"`
	Items     []LoadFormItem `json:"items"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// OutstandingPayment is a read-only projection of an unpaid bill, kept for
// collection screens. The bill stays authoritative.
type OutstandingPayment struct {
	BillID          string    `json:"billId"`
	BillNumber      string    `json:"billNumber"`
	OrderID         string    `json:"orderId"`
	ShopID          string    `json:"shopId"`
	RemainingCredit float64   `json:"remainingCredit"`
	BilledAt        time.Time `json:"billedAt"`
}
