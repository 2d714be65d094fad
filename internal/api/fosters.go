package api

import (
	"database/sql"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/notify"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

// FostersHandler handles foster assignment endpoints.
type FostersHandler struct {
	DB       *sql.DB
	Notifier *notify.Dispatcher
}

type cancelFosterRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/fosters with optional pet_id, user_id, and status
// filters.
func (h *FostersHandler) List(w http.ResponseWriter, r *http.Request) {
	var petID, userID int64

	if v := r.URL.Query().Get("pet_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid pet_id")
			return
		}
		petID = id
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}

	fosters, err := store.ListFosterAssignments(r.Context(), h.DB, petID, userID, r.URL.Query().Get("status"))
	if err != nil {
		storeError(w, err)
		return
	}
	if fosters == nil {
		fosters = []model.FosterAssignment{}
	}
	jsonResponse(w, http.StatusOK, fosters)
}

// Get handles GET /api/fosters/{id}.
func (h *FostersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid foster assignment id")
		return
	}

	foster, err := store.GetFosterAssignment(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if foster == nil {
		jsonError(w, http.StatusNotFound, "foster assignment not found")
		return
	}
	jsonResponse(w, http.StatusOK, foster)
}

// Complete handles POST /api/fosters/{id}/complete: the pet went back to
// its owner and the placement is finalized.
func (h *FostersHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid foster assignment id")
		return
	}

	actor := actorFromContext(r.Context())
	foster, err := store.CompleteFosterAssignment(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	h.Notifier.NotifyAll(r.Context(),
		[]int64{foster.OwnerUserID, foster.FosterUserID},
		notify.EventFosterCompleted, map[string]any{
			"foster_assignment_id": foster.ID,
			"pet_id":               foster.PetID,
		})

	log.Info().Int64("foster_assignment_id", foster.ID).Msg("foster assignment completed")
	jsonResponse(w, http.StatusOK, foster)
}

// Cancel handles POST /api/fosters/{id}/cancel: the arrangement ended
// early. The placement is finalized the same as a normal completion.
func (h *FostersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid foster assignment id")
		return
	}

	var req cancelFosterRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFromContext(r.Context())
	foster, err := store.CancelFosterAssignment(r.Context(), h.DB, actor, id, req.Reason)
	if err != nil {
		storeError(w, err)
		return
	}

	h.Notifier.NotifyAll(r.Context(),
		[]int64{foster.OwnerUserID, foster.FosterUserID},
		notify.EventFosterCanceled, map[string]any{
			"foster_assignment_id": foster.ID,
			"pet_id":               foster.PetID,
			"reason":               req.Reason,
		})

	log.Info().Int64("foster_assignment_id", foster.ID).Str("reason", req.Reason).Msg("foster assignment canceled")
	jsonResponse(w, http.StatusOK, foster)
}
