package domain

import (
	"strings"
	"time"

	"github.com/grupo99/execution-system/shared/models"
)

// PartUsage records parts consumed by the repair.
// TotalPrice is always derived from Quantity and UnitPrice.
type PartUsage struct {
	ID          models.ID    `json:"id"`
	PartID      string       `json:"part_id"`
	Description string       `json:"description"`
	Quantity    int          `json:"quantity"`
	UnitPrice   models.Money `json:"unit_price"`
	TotalPrice  models.Money `json:"total_price"`
	UsedAt      time.Time    `json:"used_at"`
}

// NewPartUsage creates a part usage with its total computed
func NewPartUsage(partID, description string, quantity int, unitPrice models.Money) (*PartUsage, error) {
	if strings.TrimSpace(partID) == "" {
		return nil, invalid("part id", "must not be blank")
	}
	if strings.TrimSpace(description) == "" {
		return nil, invalid("part description", "must not be blank")
	}
	if quantity <= 0 {
		return nil, invalid("quantity", "must be positive")
	}
	if !unitPrice.IsPositive() {
		return nil, invalid("unit price", "must be positive")
	}

	p := &PartUsage{
		ID:          models.GenerateUUID(),
		PartID:      partID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		UsedAt:      time.Now().UTC(),
	}
	p.Recalculate()

	return p, nil
}

// SetQuantity changes the quantity and recomputes the total
func (p *PartUsage) SetQuantity(quantity int) error {
	if quantity <= 0 {
		return invalid("quantity", "must be positive")
	}
	p.Quantity = quantity
	p.Recalculate()
	return nil
}

// SetUnitPrice changes the unit price and recomputes the total
func (p *PartUsage) SetUnitPrice(unitPrice models.Money) error {
	if !unitPrice.IsPositive() {
		return invalid("unit price", "must be positive")
	}
	p.UnitPrice = unitPrice
	p.Recalculate()
	return nil
}

// Recalculate sets TotalPrice = Quantity x UnitPrice
func (p *PartUsage) Recalculate() {
	p.TotalPrice = p.UnitPrice.Multiply(p.Quantity)
}
