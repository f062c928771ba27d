package model

import (
	"time"
)

// ListPlace is a single place registered into a list. Registration consumes
// one unit of the registrant's quota, counted lifetime across all lists.
// Rows are hard-deleted so the composite unique index frees the slot on removal.
type ListPlace struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	ListID       string    `json:"list_id" gorm:"type:uuid;not null;uniqueIndex:idx_list_place"`
	PlaceID      string    `json:"place_id" gorm:"not null;uniqueIndex:idx_list_place"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	DisplayOrder int       `json:"display_order" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterPlaceRequest is validated by the registration guard, which reports
// per-field messages; it carries no validate tags.
type RegisterPlaceRequest struct {
	PlaceID   string  `json:"place_id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type UpdatePlaceOrderRequest struct {
	DisplayOrder int `json:"display_order" validate:"min=0"`
}

type ListPlaceResponse struct {
	ID           string  `json:"id"`
	PlaceID      string  `json:"place_id"`
	Name         string  `json:"name"`
	Address      string  `json:"address,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	DisplayOrder int     `json:"display_order"`
	CreatedAt    string  `json:"created_at"`
}

func (p *ListPlace) ToListPlaceResponse() ListPlaceResponse {
	return ListPlaceResponse{
		ID:           p.ID,
		PlaceID:      p.PlaceID,
		Name:         p.Name,
		Address:      p.Address,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		DisplayOrder: p.DisplayOrder,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}
