package model

import "time"

// TransferRequest is a helper's claim against a placement request. At most
// one live (pending or accepted) request exists per placement, enforced by a
// partial unique index.
type TransferRequest struct {
	ID                 int64      `json:"id"`
	PetID              int64      `json:"pet_id"`
	PlacementRequestID int64      `json:"placement_request_id"`
	InitiatorUserID    int64      `json:"initiator_user_id"`
	RecipientUserID    int64      `json:"recipient_user_id"`
	RelationshipType   string     `json:"relationship_type"`
	Status             string     `json:"status"`
	Message            string     `json:"message,omitempty"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Relationship types requested by a transfer.
const (
	RelationshipPermanentFoster = "permanent_foster"
	RelationshipFostering       = "fostering"
)

// Transfer request statuses. Accepted is terminal for this entity's own
// status field; the workflow continues through the handover.
const (
	TransferStatusPending  = "pending"
	TransferStatusAccepted = "accepted"
	TransferStatusRejected = "rejected"
	TransferStatusCanceled = "canceled"
	TransferStatusExpired  = "expired"
)
