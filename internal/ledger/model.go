package ledger

import "time"

// TransactionType enumerates ledger entry types.
type TransactionType string

const (
	// TypeSale records a credit sale; increases shop debt.
	TypeSale TransactionType = "SALE"
	// TypePayment records a collection; decreases shop debt.
	TypePayment TransactionType = "PAYMENT"
	// TypeReturn records a return adjustment; increases shop debt.
	TypeReturn TransactionType = "RETURN"
)

// Transaction is one immutable entry in a shop's credit ledger. Corrections
// are new offsetting entries, never edits.
type Transaction struct {
	ID            string          `json:"id"`
	ShopID        string          `json:"shopId"`
	Seq           int64           `json:"seq"`
	Type          TransactionType `json:"type"`
	Amount        float64         `json:"amount"`
	BalanceBefore float64         `json:"balanceBefore"`
	BalanceAfter  float64         `json:"balanceAfter"`
	OrderID       string          `json:"orderId,omitempty"`
	BillID        string          `json:"billId,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Date          time.Time       `json:"date"`
}

// signFor maps a transaction type onto the signed direction of debt.
func signFor(t TransactionType) float64 {
	if t == TypePayment {
		return -1
	}
	return 1
}
