package db

import "github.com/avtodom/promo-api/internal/models"

// Type aliases so store callers don't import two model packages.
type (
	Order         = models.Order
	Entry         = models.Entry
	TimerSettings = models.TimerSettings
	OrderStatus   = models.OrderStatus
)

const (
	StatusPending         = models.StatusPending
	StatusAwaitingPayment = models.StatusAwaitingPayment
	StatusCompleted       = models.StatusCompleted
	StatusFailed          = models.StatusFailed
	StatusCancelled       = models.StatusCancelled
)
