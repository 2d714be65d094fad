package model

import "time"

// Handover is the physical meeting where custody of a pet changes hands.
// It is owned jointly by the two participants; either may advance most
// transitions, but only the helper confirms or denies the pet's condition.
type Handover struct {
	ID                 int64      `json:"id"`
	TransferRequestID  int64      `json:"transfer_request_id"`
	OwnerUserID        int64      `json:"owner_user_id"`
	HelperUserID       int64      `json:"helper_user_id"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	Location           string     `json:"location,omitempty"`
	Status             string     `json:"status"`
	ConditionConfirmed *bool      `json:"condition_confirmed,omitempty"`
	ConditionNotes     string     `json:"condition_notes,omitempty"`
	OwnerInitiatedAt   *time.Time `json:"owner_initiated_at,omitempty"`
	HelperConfirmedAt  *time.Time `json:"helper_confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Handover statuses.
const (
	HandoverStatusPending   = "pending"
	HandoverStatusConfirmed = "confirmed"
	HandoverStatusCompleted = "completed"
	HandoverStatusCanceled  = "canceled"
	HandoverStatusDisputed  = "disputed"
)

// HandoverDispute is a human-attention flag raised against an already
// completed handover. Pre-completion disputes transition the handover status
// instead; completed handovers keep their status and collect flag rows here.
type HandoverDispute struct {
	ID             int64     `json:"id"`
	HandoverID     int64     `json:"handover_id"`
	RaisedByUserID int64     `json:"raised_by_user_id"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
