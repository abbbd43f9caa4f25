package api

import (
	"context"
	"encoding/json"
	"net/http"

	"salonpost/internal/credentials"
)

// AccountStore persists portal accounts. The credential store
// implements it.
type AccountStore interface {
	Save(ctx context.Context, acct *credentials.Account, password string) error
	Get(ctx context.Context, id string) (*credentials.Account, error)
}

// accountRequest is the PUT body. The password is write-only; responses
// never echo it in any form.
type accountRequest struct {
	Owner     string `json:"owner"`
	UserID    string `json:"userId"`
	Password  string `json:"password"`
	SalonID   string `json:"salonId,omitempty"`
	SalonName string `json:"salonName,omitempty"`
}

// SaveAccount handles PUT /v1/accounts/{accountId}
func (h *Handler) SaveAccount(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	if accountID == "" {
		h.writeError(w, http.StatusBadRequest, "Account ID is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	acct := &credentials.Account{
		ID:        accountID,
		Owner:     req.Owner,
		UserID:    req.UserID,
		SalonID:   req.SalonID,
		SalonName: req.SalonName,
	}
	if err := h.accounts.Save(r.Context(), acct, req.Password); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, acct)
}

// GetAccount handles GET /v1/accounts/{accountId}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")
	if accountID == "" {
		h.writeError(w, http.StatusBadRequest, "Account ID is required")
		return
	}

	acct, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, acct)
}
