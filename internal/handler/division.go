package handler

import (
	"net/http"

	"kycportal/internal/division"
	"kycportal/pkg/logger"
	"kycportal/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DivisionHandler serves division and approval-grant administration.
type DivisionHandler struct {
	service   *division.Service
	validator *validator.Validator
	logger    logger.Logger
}

// NewDivisionHandler creates a DivisionHandler.
func NewDivisionHandler(service *division.Service, val *validator.Validator, log logger.Logger) *DivisionHandler {
	return &DivisionHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

func divisionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid division ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /divisions.
func (h *DivisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req division.DivisionInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	d, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, "CreateDivision", err)
		return
	}

	respondJSON(w, http.StatusCreated, d)
}

// Get handles GET /divisions/{id}.
func (h *DivisionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := divisionID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, "GetDivision", err)
		return
	}

	respondJSON(w, http.StatusOK, d)
}

// List handles GET /divisions. Pass active=true to exclude deactivated ones.
func (h *DivisionHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	divisions, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		handleServiceError(w, h.logger, "ListDivisions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"divisions": divisions,
		"count":     len(divisions),
	})
}

// Update handles PUT /divisions/{id}.
func (h *DivisionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := divisionID(w, r)
	if !ok {
		return
	}

	var req division.DivisionInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	d, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, "UpdateDivision", err)
		return
	}

	respondJSON(w, http.StatusOK, d)
}

// Grant handles POST /grants.
func (h *DivisionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req division.GrantInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	g, err := h.service.Grant(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, "IssueGrant", err)
		return
	}

	respondJSON(w, http.StatusCreated, g)
}

// Revoke handles DELETE /grants?user_id=&division_id=.
func (h *DivisionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	divID, err := uuid.Parse(r.URL.Query().Get("division_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid division_id")
		return
	}

	if err := h.service.Revoke(r.Context(), userID, divID); err != nil {
		handleServiceError(w, h.logger, "RevokeGrant", err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// GrantsForUser handles GET /users/{id}/grants.
func (h *DivisionHandler) GrantsForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	grants, err := h.service.GrantsForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, "GrantsForUser", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"grants": grants,
		"count":  len(grants),
	})
}
