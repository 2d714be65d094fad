package api

import (
	"database/sql"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/notify"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

// TransfersHandler handles transfer request endpoints.
type TransfersHandler struct {
	DB       *sql.DB
	Notifier *notify.Dispatcher
}

// List handles GET /api/transfers with optional placement_id, user_id, and
// status filters.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	var placementID, userID int64

	if v := r.URL.Query().Get("placement_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid placement_id")
			return
		}
		placementID = id
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}

	transfers, err := store.ListTransferRequests(r.Context(), h.DB, placementID, userID, r.URL.Query().Get("status"))
	if err != nil {
		storeError(w, err)
		return
	}
	if transfers == nil {
		transfers = []model.TransferRequest{}
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transfer request id")
		return
	}

	transfer, err := store.GetTransferRequest(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if transfer == nil {
		jsonError(w, http.StatusNotFound, "transfer request not found")
		return
	}
	jsonResponse(w, http.StatusOK, transfer)
}

type acceptTransferResponse struct {
	Transfer *model.TransferRequest `json:"transfer_request"`
	Handover *model.Handover        `json:"handover"`
}

// Accept handles POST /api/transfers/{id}/accept. Acceptance creates the
// pending handover in the same transaction.
func (h *TransfersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transfer request id")
		return
	}

	actor := actorFromContext(r.Context())
	transfer, handover, err := store.AcceptTransferRequest(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	h.Notifier.Notify(r.Context(), transfer.InitiatorUserID, notify.EventTransferAccepted, map[string]any{
		"transfer_request_id": transfer.ID,
		"handover_id":         handover.ID,
		"pet_id":              transfer.PetID,
	})

	log.Info().
		Int64("transfer_request_id", transfer.ID).
		Int64("handover_id", handover.ID).
		Msg("transfer request accepted")
	jsonResponse(w, http.StatusOK, acceptTransferResponse{Transfer: transfer, Handover: handover})
}

// Reject handles POST /api/transfers/{id}/reject.
func (h *TransfersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transfer request id")
		return
	}

	actor := actorFromContext(r.Context())
	transfer, err := store.RejectTransferRequest(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	h.Notifier.Notify(r.Context(), transfer.InitiatorUserID, notify.EventTransferRejected, map[string]any{
		"transfer_request_id": transfer.ID,
		"pet_id":              transfer.PetID,
	})

	log.Info().Int64("transfer_request_id", transfer.ID).Msg("transfer request rejected")
	jsonResponse(w, http.StatusOK, transfer)
}

// Cancel handles POST /api/transfers/{id}/cancel: the initiating helper
// withdraws a pending request.
func (h *TransfersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transfer request id")
		return
	}

	actor := actorFromContext(r.Context())
	transfer, err := store.CancelTransferRequest(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	log.Info().Int64("transfer_request_id", transfer.ID).Msg("transfer request canceled")
	jsonResponse(w, http.StatusOK, transfer)
}
