package entity

import (
	"time"

	"github.com/google/uuid"
)

// Course represents a saved course for data transfer between layers.
type Course struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	CreatedAt   time.Time     `json:"created_at"`
	Assignments []*Assignment `json:"assignments,omitempty"`
}
