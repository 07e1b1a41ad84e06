package handlers

import (
	"net/http"

	"ledger-service/internal/service"
	"ledger-service/models"
)

type AccountHandler struct {
	accountService service.AccountService
	userService    service.UserService
}

func NewAccountHandler(accountService service.AccountService, userService service.UserService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		userService:    userService,
	}
}

// Register creates the profile and funded account of the authenticated identity.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized)
		return
	}

	var req models.RegisterUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.userService.Register(r.Context(), userID, req.Username, req.FullName)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, profile)
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized)
		return
	}

	balance, err := h.accountService.GetBalance(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, models.BalanceResponse{
		UserID:         userID,
		Balance:        balance,
		BalanceDisplay: models.FormatAmount(balance),
	})
}
