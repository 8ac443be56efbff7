package handler

import (
	"net/http"

	"kycportal/internal/domain"
	"kycportal/internal/kyc"
	"kycportal/internal/middleware"
	"kycportal/pkg/logger"
	"kycportal/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// EntityHandler serves the customer/vendor record endpoints and the approval
// workflow actions.
type EntityHandler struct {
	service   *kyc.Service
	workflow  *kyc.Workflow
	validator *validator.Validator
	logger    logger.Logger
}

// NewEntityHandler creates an EntityHandler with required dependencies.
func NewEntityHandler(service *kyc.Service, workflow *kyc.Workflow, val *validator.Validator, log logger.Logger) *EntityHandler {
	return &EntityHandler{
		service:   service,
		workflow:  workflow,
		validator: val,
		logger:    log,
	}
}

func (h *EntityHandler) actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.logger.Warn("Missing user ID in context", map[string]interface{}{
			"endpoint": r.URL.Path,
			"ip":       r.RemoteAddr,
		})
		respondError(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return uuid.Nil, false
	}
	return userID, true
}

func entityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid entity ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /entities.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	var req kyc.EntityInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	entity, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		handleServiceError(w, h.logger, "CreateEntity", err)
		return
	}

	respondJSON(w, http.StatusCreated, entity)
}

// Get handles GET /entities/{id}.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	entity, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, "GetEntity", err)
		return
	}

	respondJSON(w, http.StatusOK, entity)
}

// List handles GET /entities with optional kind, status, division_id, and
// created_by query filters.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := kyc.EntityFilter{
		Kind:   domain.EntityKind(q.Get("kind")),
		Status: domain.KYCStatus(q.Get("status")),
	}
	if s := q.Get("division_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid division_id filter")
			return
		}
		filter.DivisionID = id
	}
	if s := q.Get("created_by"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid created_by filter")
			return
		}
		filter.CreatedBy = id
	}

	entities, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, h.logger, "ListEntities", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entities": entities,
		"count":    len(entities),
	})
}

// Update handles PUT /entities/{id}.
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	var req kyc.EntityInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	entity, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, "UpdateEntity", err)
		return
	}

	respondJSON(w, http.StatusOK, entity)
}

// Delete handles DELETE /entities/{id}.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, "DeleteEntity", err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// History handles GET /entities/{id}/history.
func (h *EntityHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	records, err := h.service.History(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, "EntityHistory", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": records,
		"count":   len(records),
	})
}

// Submit handles POST /entities/{id}/submit.
func (h *EntityHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	entity, err := h.workflow.Submit(r.Context(), id, actorID)
	if err != nil {
		handleServiceError(w, h.logger, "SubmitEntity", err)
		return
	}

	h.logger.Info("Entity submitted for approval", map[string]interface{}{
		"entity_id": entity.ID,
		"user_id":   actorID,
		"ip":        r.RemoteAddr,
	})

	respondJSON(w, http.StatusOK, entity)
}

type approveRequest struct {
	Level    int    `json:"level" validate:"gte=0,lte=3"`
	Comments string `json:"comments" validate:"max=500"`
}

// Approve handles POST /entities/{id}/approve. The acting level comes from
// the caller's grant; a non-zero level in the body is only a cross-check.
func (h *EntityHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	req := approveRequest{}
	if r.ContentLength > 0 {
		if !parseAndValidateRequest(w, r, h.validator, &req) {
			return
		}
	}

	entity, err := h.workflow.Approve(r.Context(), id, actorID, req.Level, req.Comments)
	if err != nil {
		handleServiceError(w, h.logger, "ApproveEntity", err)
		return
	}

	h.logger.Info("Entity approved", map[string]interface{}{
		"entity_id": entity.ID,
		"user_id":   actorID,
		"status":    entity.Status,
		"ip":        r.RemoteAddr,
	})

	respondJSON(w, http.StatusOK, entity)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Reject handles POST /entities/{id}/reject.
func (h *EntityHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	var req rejectRequest
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	entity, err := h.workflow.Reject(r.Context(), id, actorID, req.Reason)
	if err != nil {
		handleServiceError(w, h.logger, "RejectEntity", err)
		return
	}

	h.logger.Info("Entity rejected", map[string]interface{}{
		"entity_id": entity.ID,
		"user_id":   actorID,
		"ip":        r.RemoteAddr,
	})

	respondJSON(w, http.StatusOK, entity)
}

// Sync handles POST /entities/{id}/sync.
func (h *EntityHandler) Sync(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	id, ok := entityID(w, r)
	if !ok {
		return
	}

	entity, err := h.workflow.SyncToSAP(r.Context(), id, actorID)
	if err != nil {
		handleServiceError(w, h.logger, "SyncEntity", err)
		return
	}

	h.logger.Info("Entity synced to SAP", map[string]interface{}{
		"entity_id":     entity.ID,
		"sap_card_code": entity.SAPCardCode,
		"user_id":       actorID,
		"ip":            r.RemoteAddr,
	})

	respondJSON(w, http.StatusOK, entity)
}

// Pending handles GET /approvals/pending with an optional division_id filter.
// It returns the records awaiting the caller at the levels they hold.
func (h *EntityHandler) Pending(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}

	var divisionID *uuid.UUID
	if s := r.URL.Query().Get("division_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid division_id filter")
			return
		}
		divisionID = &id
	}

	pending, err := h.workflow.PendingForManager(r.Context(), actorID, divisionID)
	if err != nil {
		handleServiceError(w, h.logger, "PendingApprovals", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending": pending,
		"count":   len(pending),
	})
}
