package model

import "time"

// Pet represents a pet listed on the platform. UserID is the current owner;
// it only changes through a completed permanent handover.
type Pet struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Species     string     `json:"species"`
	Description string     `json:"description,omitempty"`
	UserID      int64      `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
