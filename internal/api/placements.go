package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/notify"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

// PlacementsHandler handles placement request endpoints.
type PlacementsHandler struct {
	DB       *sql.DB
	Notifier *notify.Dispatcher
}

type createPlacementRequest struct {
	PetID       int64      `json:"pet_id"`
	RequestType string     `json:"request_type"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type respondRequest struct {
	Message string `json:"message"`
}

// Create handles POST /api/placements.
func (h *PlacementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlacementRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PetID <= 0 {
		jsonError(w, http.StatusBadRequest, "pet_id required")
		return
	}

	actor := actorFromContext(r.Context())
	placement, err := store.CreatePlacement(r.Context(), h.DB, actor, req.PetID, req.RequestType, req.EndDate, req.ExpiresAt)
	if err != nil {
		storeError(w, err)
		return
	}

	log.Info().
		Int64("placement_id", placement.ID).
		Int64("pet_id", placement.PetID).
		Str("type", placement.RequestType).
		Msg("placement request created")
	jsonResponse(w, http.StatusCreated, placement)
}

// List handles GET /api/placements with optional status and owner_id filters.
func (h *PlacementsHandler) List(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	if v := r.URL.Query().Get("owner_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid owner_id")
			return
		}
		ownerID = id
	}

	placements, err := store.ListPlacements(r.Context(), h.DB, r.URL.Query().Get("status"), ownerID)
	if err != nil {
		storeError(w, err)
		return
	}
	if placements == nil {
		placements = []model.PlacementRequest{}
	}
	jsonResponse(w, http.StatusOK, placements)
}

// Get handles GET /api/placements/{id}.
func (h *PlacementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid placement id")
		return
	}

	placement, err := store.GetPlacement(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if placement == nil {
		jsonError(w, http.StatusNotFound, "placement not found")
		return
	}
	jsonResponse(w, http.StatusOK, placement)
}

// Cancel handles DELETE /api/placements/{id}. Cancellation closes any live
// transfer request and pending handover along with the placement.
func (h *PlacementsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid placement id")
		return
	}

	actor := actorFromContext(r.Context())
	placement, err := store.CancelPlacement(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	log.Info().Int64("placement_id", id).Int64("user_id", actor.ID).Msg("placement canceled")
	jsonResponse(w, http.StatusOK, placement)
}

// Respond handles POST /api/placements/{id}/respond: a helper volunteers
// for an open placement, creating a pending transfer request.
func (h *PlacementsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid placement id")
		return
	}

	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFromContext(r.Context())
	transfer, err := store.RespondToPlacement(r.Context(), h.DB, actor, id, req.Message)
	if err != nil {
		storeError(w, err)
		return
	}

	log.Info().
		Int64("placement_id", id).
		Int64("transfer_request_id", transfer.ID).
		Int64("helper_id", actor.ID).
		Msg("placement response created")
	jsonResponse(w, http.StatusCreated, transfer)
}
