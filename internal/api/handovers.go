package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/notify"
	"github.com/gnezdoapp/gnezdo/internal/observability"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

// HandoversHandler handles handover endpoints.
type HandoversHandler struct {
	DB       *sql.DB
	Notifier *notify.Dispatcher
}

type scheduleHandoverRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location"`
}

type confirmHandoverRequest struct {
	ConditionConfirmed bool   `json:"condition_confirmed"`
	Notes              string `json:"notes"`
}

type disputeHandoverRequest struct {
	Reason string `json:"reason"`
}

// Schedule handles PUT /api/transfers/{id}/handover: either participant
// sets or updates the meeting time and place while the handover is pending.
func (h *HandoversHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid transfer request id")
		return
	}

	var req scheduleHandoverRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ScheduledAt.IsZero() {
		jsonError(w, http.StatusBadRequest, "scheduled_at required")
		return
	}

	actor := actorFromContext(r.Context())
	handover, err := store.ScheduleHandover(r.Context(), h.DB, actor, id, req.ScheduledAt, req.Location)
	if err != nil {
		storeError(w, err)
		return
	}

	other := handover.OwnerUserID
	if actor.ID == other {
		other = handover.HelperUserID
	}
	h.Notifier.Notify(r.Context(), other, notify.EventHandoverScheduled, map[string]any{
		"handover_id":  handover.ID,
		"scheduled_at": handover.ScheduledAt,
		"location":     handover.Location,
	})

	log.Info().Int64("handover_id", handover.ID).Time("scheduled_at", req.ScheduledAt).Msg("handover scheduled")
	jsonResponse(w, http.StatusOK, handover)
}

// Get handles GET /api/handovers/{id}.
func (h *HandoversHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid handover id")
		return
	}

	handover, err := store.GetHandover(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if handover == nil {
		jsonError(w, http.StatusNotFound, "handover not found")
		return
	}
	jsonResponse(w, http.StatusOK, handover)
}

// Confirm handles POST /api/handovers/{id}/confirm: the helper attests to
// the pet's condition. A denial moves the handover to disputed.
func (h *HandoversHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid handover id")
		return
	}

	var req confirmHandoverRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFromContext(r.Context())
	handover, err := store.HelperConfirmHandover(r.Context(), h.DB, actor, id, req.ConditionConfirmed, req.Notes)
	if err != nil {
		storeError(w, err)
		return
	}

	if handover.Status == model.HandoverStatusDisputed {
		h.Notifier.Notify(r.Context(), handover.OwnerUserID, notify.EventHandoverDisputed, map[string]any{
			"handover_id": handover.ID,
		})
	}

	log.Info().
		Int64("handover_id", handover.ID).
		Bool("condition_confirmed", req.ConditionConfirmed).
		Str("status", handover.Status).
		Msg("handover condition reported")
	jsonResponse(w, http.StatusOK, handover)
}

// Complete handles POST /api/handovers/{id}/complete: custody changes hands.
// For permanent placements the pet is reassigned and the ownership ledger
// extended; for fostering a foster assignment is created. Notifications go
// out only after the transaction has committed.
func (h *HandoversHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid handover id")
		return
	}

	actor := actorFromContext(r.Context())
	result, err := store.CompleteHandover(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	observability.RecordHandoverCompletion(result.Placement.Status)
	payload := map[string]any{
		"handover_id":  result.Handover.ID,
		"pet_id":       result.Transfer.PetID,
		"placement_id": result.Placement.ID,
		"outcome":      result.Placement.Status,
	}
	h.Notifier.NotifyAll(r.Context(),
		[]int64{result.Handover.OwnerUserID, result.Handover.HelperUserID},
		notify.EventHandoverCompleted, payload)

	log.Info().
		Int64("handover_id", result.Handover.ID).
		Int64("pet_id", result.Transfer.PetID).
		Str("relationship", result.Transfer.RelationshipType).
		Str("placement_status", result.Placement.Status).
		Msg("handover completed")
	jsonResponse(w, http.StatusOK, result)
}

// Cancel handles POST /api/handovers/{id}/cancel. Canceling unwinds the
// accepted transfer request and reopens the placement.
func (h *HandoversHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid handover id")
		return
	}

	actor := actorFromContext(r.Context())
	handover, err := store.CancelHandover(r.Context(), h.DB, actor, id)
	if err != nil {
		storeError(w, err)
		return
	}

	other := handover.OwnerUserID
	if actor.ID == other {
		other = handover.HelperUserID
	}
	h.Notifier.Notify(r.Context(), other, notify.EventHandoverCanceled, map[string]any{
		"handover_id": handover.ID,
	})

	log.Info().Int64("handover_id", handover.ID).Int64("user_id", actor.ID).Msg("handover canceled")
	jsonResponse(w, http.StatusOK, handover)
}

type disputeResponse struct {
	Handover *model.Handover        `json:"handover"`
	Dispute  *model.HandoverDispute `json:"dispute,omitempty"`
}

// Dispute handles POST /api/handovers/{id}/dispute. The reason is recorded
// as a dispute row; before completion the handover itself also moves to
// disputed, after completion the committed outcome stands.
func (h *HandoversHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid handover id")
		return
	}

	var req disputeHandoverRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := actorFromContext(r.Context())
	handover, dispute, err := store.DisputeHandover(r.Context(), h.DB, actor, id, req.Reason)
	if err != nil {
		storeError(w, err)
		return
	}

	other := handover.OwnerUserID
	if actor.ID == other {
		other = handover.HelperUserID
	}
	h.Notifier.Notify(r.Context(), other, notify.EventHandoverDisputed, map[string]any{
		"handover_id": handover.ID,
		"reason":      req.Reason,
	})

	log.Warn().Int64("handover_id", handover.ID).Int64("user_id", actor.ID).Msg("handover disputed")
	jsonResponse(w, http.StatusOK, disputeResponse{Handover: handover, Dispute: dispute})
}

// ListDisputes handles GET /api/handovers/{id}/disputes (admin only).
func (h *HandoversHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid handover id")
		return
	}

	disputes, err := store.ListHandoverDisputes(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if disputes == nil {
		disputes = []model.HandoverDispute{}
	}
	jsonResponse(w, http.StatusOK, disputes)
}
