package domain

import (
	"strings"
	"time"

	"github.com/grupo99/execution-system/shared/models"
)

// Diagnosis records a mechanic's finding on the vehicle
type Diagnosis struct {
	ID          models.ID `json:"id"`
	Description string    `json:"description"`
	Mechanic    string    `json:"mechanic"`
	Notes       string    `json:"notes,omitempty"`
	DiagnosedAt time.Time `json:"diagnosed_at"`
}

// NewDiagnosis creates a diagnosis
func NewDiagnosis(description, mechanic, notes string) (*Diagnosis, error) {
	if strings.TrimSpace(description) == "" {
		return nil, invalid("diagnosis description", "must not be blank")
	}
	if strings.TrimSpace(mechanic) == "" {
		return nil, invalid("diagnosis mechanic", "must not be blank")
	}

	return &Diagnosis{
		ID:          models.GenerateUUID(),
		Description: description,
		Mechanic:    mechanic,
		Notes:       notes,
		DiagnosedAt: time.Now().UTC(),
	}, nil
}
