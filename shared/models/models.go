package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultCurrency is used when a monetary value arrives without a currency code
const DefaultCurrency = "BRL"

var ErrCurrencyMismatch = errors.New("currency mismatch")

// ID identifies aggregates and correlates events. Inbound ids from other services are
// kept verbatim, only ids minted here are UUIDs.
type ID string

func GenerateUUID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsEmpty() bool {
	return id == ""
}

// Timestamps are always UTC
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}

// Update returns a copy touched at the current time
func (t Timestamps) Update() Timestamps {
	t.UpdatedAt = time.Now().UTC()
	return t
}

// Money is an amount in minor units (cents)
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// Add sums two values of the same currency
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, errors.Wrapf(ErrCurrencyMismatch, "%s + %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

func (m Money) Multiply(quantity int) Money {
	return Money{Amount: m.Amount * int64(quantity), Currency: m.Currency}
}
