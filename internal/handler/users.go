package handler

import (
	"net/http"

	"kycportal/internal/admin"
	"kycportal/pkg/logger"
	"kycportal/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// UserHandler serves user account administration.
type UserHandler struct {
	service   *admin.Service
	validator *validator.Validator
	logger    logger.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(service *admin.Service, val *validator.Validator, log logger.Logger) *UserHandler {
	return &UserHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req admin.CreateUserInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, "CreateUser", err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, "GetUser", err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, "ListUsers", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// Update handles PUT /users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req admin.UpdateUserInput
	if !parseAndValidateRequest(w, r, h.validator, &req) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, req)
	if err != nil {
		handleServiceError(w, h.logger, "UpdateUser", err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, "DeleteUser", err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
