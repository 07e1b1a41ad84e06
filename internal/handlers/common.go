package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"ledger-service/models"
)

var validate = validator.New()

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func sendJSONError(w http.ResponseWriter, errorCode, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}

	json.NewEncoder(w).Encode(response)
}

func sendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendJSONError(w, "INVALID_REQUEST", "Invalid request body", http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		sendJSONError(w, "VALIDATION_FAILED", err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

// sendServiceError maps the error taxonomy onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAmount):
		sendJSONError(w, "INVALID_AMOUNT", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrSelfTransfer):
		sendJSONError(w, "SELF_TRANSFER", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidUsername):
		sendJSONError(w, "INVALID_USERNAME", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrValidation):
		sendJSONError(w, "VALIDATION_FAILED", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrUserNotFound):
		sendJSONError(w, "USER_NOT_FOUND", err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrNotFound):
		sendJSONError(w, "TRANSACTION_NOT_FOUND", err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrForbidden):
		sendJSONError(w, "FORBIDDEN", err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrAlreadyProcessed):
		sendJSONError(w, "ALREADY_PROCESSED", "Transaction has already been processed, refresh and try again", http.StatusConflict)
	case errors.Is(err, models.ErrUsernameTaken):
		sendJSONError(w, "USERNAME_TAKEN", err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrAccountExists):
		sendJSONError(w, "ACCOUNT_ALREADY_EXISTS", err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrInsufficientFunds):
		sendJSONError(w, "INSUFFICIENT_FUNDS", "Insufficient funds, the transaction is still pending", http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrStorageUnavailable):
		sendJSONError(w, "STORAGE_UNAVAILABLE", "Storage is unavailable, nothing was changed. Retry later", http.StatusServiceUnavailable)
	default:
		sendJSONError(w, "INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
	}
}
