package shops

import "time"

// Shop is one retail customer on a delivery route.
type Shop struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerName string    `json:"ownerName,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Area      string    `json:"area,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
