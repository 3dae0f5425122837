package orders

import "time"

// PaymentMode enumerates how a booking is settled.
type PaymentMode string

const (
	PaymentCash    PaymentMode = "cash"
	PaymentCredit  PaymentMode = "credit"
	PaymentPartial PaymentMode = "partial"
)

// OrderItem is one product line on an order. The computed money fields are
// filled by the discount module at submit time.
type OrderItem struct {
	ProductID              string  `json:"productId"`
	Quantity               float64 `json:"quantity"`
	UnitPrice              float64 `json:"unitPrice"`
	DiscountPercent        float64 `json:"discountPercent"`
	DiscountAmount         float64 `json:"discountAmount"`
	LineTotal              float64 `json:"lineTotal"`
	FinalAmount            float64 `json:"finalAmount"`
	UnauthorizedAmount     float64 `json:"unauthorizedAmount"`
	IsUnauthorizedDiscount bool    `json:"isUnauthorizedDiscount"`
}

// Order is one booking. CashAmount and CreditAmount are fixed at submit time;
// payment progress afterwards lives on the Bill, which is authoritative.
type Order struct {
	ID                   string      `json:"id"`
	OrderNumber          string      `json:"orderNumber"`
	ShopID               string      `json:"shopId"`
	BookerID             string      `json:"bookerId"`
	Items                []OrderItem `json:"items"`
	Subtotal             float64     `json:"subtotal"`
	TotalDiscount        float64     `json:"totalDiscount"`
	UnauthorizedDiscount float64     `json:"unauthorizedDiscount"`
	GrandTotal           float64     `json:"grandTotal"`
	PaymentMode          PaymentMode `json:"paymentMode"`
	CashAmount           float64     `json:"cashAmount"`
	CreditAmount         float64     `json:"creditAmount"`
	Notes                string      `json:"notes,omitempty"`
	Status               Status      `json:"status"`
	EditApproved         bool        `json:"editApproved"`
	RejectionReason      string      `json:"rejectionReason,omitempty"`

	// RecordedUnauthorizedDiscount is the amount last pushed into the
	// booker's accumulator for this order; resubmissions apply the delta
	// against it so nothing double-counts. RecordedUnauthorizedPeriod is the
	// period it was booked under, so a resubmission in a later month reverses
	// the right month's entry.
	RecordedUnauthorizedDiscount float64 `json:"recordedUnauthorizedDiscount"`
	RecordedUnauthorizedPeriod   string  `json:"recordedUnauthorizedPeriod,omitempty"`

	SalesmanID  string     `json:"salesmanId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}
