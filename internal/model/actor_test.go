package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	if !RoleAtLeast(RoleAdmin, RoleUser) {
		t.Error("admin should satisfy user")
	}
	if RoleAtLeast(RoleUser, RoleAdmin) {
		t.Error("user should not satisfy admin")
	}
	if !RoleAtLeast(RoleUser, RoleUser) {
		t.Error("user should satisfy user")
	}
	if RoleAtLeast("unknown", RoleUser) {
		t.Error("unknown role should not satisfy user")
	}
}

func TestActorCapabilities(t *testing.T) {
	owner := Actor{ID: 1, Role: RoleUser}
	helper := Actor{ID: 2, Role: RoleUser}
	stranger := Actor{ID: 3, Role: RoleUser}

	pet := &Pet{ID: 10, UserID: 1}
	if !owner.IsOwnerOf(pet) {
		t.Error("owner should own pet")
	}
	if helper.IsOwnerOf(pet) {
		t.Error("helper should not own pet")
	}
	if owner.IsOwnerOf(nil) {
		t.Error("nil pet should never be owned")
	}

	h := &Handover{ID: 20, OwnerUserID: 1, HelperUserID: 2}
	for _, a := range []Actor{owner, helper} {
		if !a.IsParticipantOf(h) {
			t.Errorf("actor %d should be a participant", a.ID)
		}
	}
	if stranger.IsParticipantOf(h) {
		t.Error("stranger should not be a participant")
	}
}
