package model

import "time"

// FosterAssignment is a temporary custody arrangement created exactly once
// per transfer request when a fostering handover completes. The four-column
// key (pet, owner, foster, transfer request) makes creation idempotent.
type FosterAssignment struct {
	ID                 int64      `json:"id"`
	PetID              int64      `json:"pet_id"`
	OwnerUserID        int64      `json:"owner_user_id"`
	FosterUserID       int64      `json:"foster_user_id"`
	TransferRequestID  int64      `json:"transfer_request_id"`
	StartDate          time.Time  `json:"start_date"`
	ExpectedEndDate    *time.Time `json:"expected_end_date,omitempty"`
	Status             string     `json:"status"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Foster assignment statuses.
const (
	FosterStatusActive    = "active"
	FosterStatusCompleted = "completed"
	FosterStatusCanceled  = "canceled"
)
