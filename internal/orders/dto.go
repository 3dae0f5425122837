package orders

// orderItemRequest is one product line in a create/update payload.
type orderItemRequest struct {
	ProductID       string  `json:"productId" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gte=1"`
	UnitPrice       float64 `json:"unitPrice" validate:"gte=0"`
	DiscountPercent float64 `json:"discountPercent" validate:"gte=0"`
}

type createOrderRequest struct {
	ShopID      string             `json:"shopId" validate:"required"`
	Items       []orderItemRequest `json:"items" validate:"dive"`
	PaymentMode string             `json:"paymentMode" validate:"omitempty,oneof=cash credit partial"`
	CashAmount  float64            `json:"cashAmount" validate:"gte=0"`
	Notes       string             `json:"notes"`
}

// updateOrderRequest leaves omitted fields untouched; cashAmount is a pointer
// so an absent field is distinguishable from an explicit zero.
type updateOrderRequest struct {
	Items       []orderItemRequest `json:"items" validate:"omitempty,dive"`
	PaymentMode string             `json:"paymentMode" validate:"omitempty,oneof=cash credit partial"`
	CashAmount  *float64           `json:"cashAmount" validate:"omitempty,gte=0"`
	Notes       string             `json:"notes"`
}

type rejectOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type assignOrderRequest struct {
	SalesmanID string `json:"salesmanId" validate:"required"`
}

func toItems(reqs []orderItemRequest) []OrderItem {
	if reqs == nil {
		return nil
	}
	items := make([]OrderItem, len(reqs))
	for i, r := range reqs {
		items[i] = OrderItem{
			ProductID:       r.ProductID,
			Quantity:        r.Quantity,
			UnitPrice:       r.UnitPrice,
			DiscountPercent: r.DiscountPercent,
		}
	}
	return items
}
