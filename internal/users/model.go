package users

import "time"

// User is a field actor: booker, KPO or salesman. Bookers carry the discount
// policy ceiling and the unauthorized-discount accumulator used for salary
// deduction.
type User struct {
	ID                           string             `json:"id"`
	Name                         string             `json:"name"`
	Role                         string             `json:"role"`
	MaxDiscountPercent           float64            `json:"maxDiscountPercent"`
	MonthlyUnauthorizedDiscounts map[string]float64 `json:"monthlyUnauthorizedDiscounts,omitempty"`
	TotalUnauthorizedDiscount    float64            `json:"totalUnauthorizedDiscount"`
	CreatedAt                    time.Time          `json:"createdAt"`
	UpdatedAt                    time.Time          `json:"updatedAt"`
}
