package api

import (
	"database/sql"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

// PetsHandler handles pet endpoints.
type PetsHandler struct {
	DB *sql.DB
}

type petRequest struct {
	Name        string `json:"name"`
	Species     string `json:"species"`
	Description string `json:"description"`
}

// Create handles POST /api/pets. The authenticated user becomes the owner.
func (h *PetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req petRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Species == "" {
		jsonError(w, http.StatusBadRequest, "name and species required")
		return
	}

	claims := GetClaims(r.Context())
	pet, err := store.CreatePet(r.Context(), h.DB, req.Name, req.Species, req.Description, claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	log.Info().Str("user", claims.Username).Str("pet", pet.Name).Msg("pet registered")
	jsonResponse(w, http.StatusCreated, pet)
}

// List handles GET /api/pets with an optional owner_id filter.
func (h *PetsHandler) List(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if v := r.URL.Query().Get("owner_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid owner_id")
			return
		}
		ownerID = id
	}

	pets, err := store.ListPets(r.Context(), h.DB, ownerID)
	if err != nil {
		storeError(w, err)
		return
	}
	if pets == nil {
		pets = []model.Pet{}
	}
	jsonResponse(w, http.StatusOK, pets)
}

// Get handles GET /api/pets/{id}.
func (h *PetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	pet, err := store.GetPet(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if pet == nil {
		jsonError(w, http.StatusNotFound, "pet not found")
		return
	}
	jsonResponse(w, http.StatusOK, pet)
}

// Update handles PUT /api/pets/{id}.
func (h *PetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	var req petRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Species == "" {
		jsonError(w, http.StatusBadRequest, "name and species required")
		return
	}

	actor := actorFromContext(r.Context())
	if err := store.UpdatePet(r.Context(), h.DB, actor, id, req.Name, req.Species, req.Description); err != nil {
		storeError(w, err)
		return
	}

	pet, _ := store.GetPet(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, pet)
}

// Delete handles DELETE /api/pets/{id}.
func (h *PetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	actor := actorFromContext(r.Context())
	if err := store.DeletePet(r.Context(), h.DB, actor, id); err != nil {
		storeError(w, err)
		return
	}

	log.Info().Int64("pet_id", id).Int64("user_id", actor.ID).Msg("pet deleted")
	jsonResponse(w, http.StatusOK, map[string]string{"message": "pet deleted"})
}

// GetOwnership handles GET /api/pets/{id}/ownership, returning the full
// ownership ledger newest first.
func (h *PetsHandler) GetOwnership(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid pet id")
		return
	}

	pet, err := store.GetPet(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if pet == nil {
		jsonError(w, http.StatusNotFound, "pet not found")
		return
	}

	history, err := store.OwnershipHistory(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if history == nil {
		history = []model.OwnershipRecord{}
	}
	jsonResponse(w, http.StatusOK, history)
}
