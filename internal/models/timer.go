package models

import "time"

// TimerSettings holds the promo countdown shown on the storefront.
type TimerSettings struct {
	IsActive  bool      `json:"is_active"`
	EndDate   time.Time `json:"end_date"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}
