package settings

import (
	"time"

	"github.com/google/uuid"
)

// Settings represents a row in the user_settings table.
type Settings struct {
	OwnerID       uuid.UUID
	WalletAddress string // USDT-TRC20 receiving address
	CompanyName   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
