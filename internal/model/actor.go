package model

// Actor is the acting user for an operation. It centralizes the capability
// checks the workflow needs so authorization logic is written once instead
// of being re-derived in every handler.
type Actor struct {
	ID   int64
	Role string
}

// HasRole reports whether the actor's role meets or exceeds the minimum.
func (a Actor) HasRole(minimum string) bool {
	return RoleAtLeast(a.Role, minimum)
}

// IsOwnerOf reports whether the actor currently owns the pet.
func (a Actor) IsOwnerOf(p *Pet) bool {
	return p != nil && p.UserID == a.ID
}

// IsParticipantOf reports whether the actor is the owner or helper side of
// the handover.
func (a Actor) IsParticipantOf(h *Handover) bool {
	return h != nil && (h.OwnerUserID == a.ID || h.HelperUserID == a.ID)
}
