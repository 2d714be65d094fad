package model

import "time"

// PlacementRequest is an owner's open offer to place a pet with a helper.
// Status is monotonic along the workflow graph; it never regresses except
// via explicit cancellation, and rows are never hard-deleted.
type PlacementRequest struct {
	ID          int64      `json:"id"`
	PetID       int64      `json:"pet_id"`
	OwnerUserID int64      `json:"owner_user_id"`
	RequestType string     `json:"request_type"`
	Status      string     `json:"status"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	PetName string `json:"pet_name,omitempty"`
}

// Placement request types.
const (
	PlacementTypeFosterPaid = "foster_paid"
	PlacementTypeFosterFree = "foster_free"
	PlacementTypePermanent  = "permanent"
)

// Placement request statuses. PlacementStatusPendingTransfer is an internal
// marker written inside the completion transaction; it is never durably
// observed because the final status commits in the same transaction.
const (
	PlacementStatusOpen            = "open"
	PlacementStatusPendingReview   = "pending_review"
	PlacementStatusFulfilled       = "fulfilled"
	PlacementStatusPendingTransfer = "pending_transfer"
	PlacementStatusActive          = "active"
	PlacementStatusFinalized       = "finalized"
	PlacementStatusExpired         = "expired"
	PlacementStatusCancelled       = "cancelled"
)

// ValidPlacementType reports whether t is a known placement request type.
func ValidPlacementType(t string) bool {
	switch t {
	case PlacementTypeFosterPaid, PlacementTypeFosterFree, PlacementTypePermanent:
		return true
	}
	return false
}

// RelationshipTypeFor returns the transfer relationship implied by a
// placement request type.
func RelationshipTypeFor(placementType string) string {
	if placementType == PlacementTypePermanent {
		return RelationshipPermanentFoster
	}
	return RelationshipFostering
}
