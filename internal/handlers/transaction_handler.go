package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ledger-service/internal/service"
	"ledger-service/models"
)

type TransactionHandler struct {
	transferService service.TransferService
}

func NewTransactionHandler(transferService service.TransferService) *TransactionHandler {
	return &TransactionHandler{
		transferService: transferService,
	}
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized)
		return
	}

	var req models.CreateTransactionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	transaction, err := h.transferService.RequestTransfer(r.Context(),
		models.TransactionKind(req.Kind), userID, req.CounterpartyUsername, amount, req.Description)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized)
		return
	}

	transactions, err := h.transferService.ListTransactions(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, models.TransactionListResponse{Transactions: transactions})
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	h.withTransaction(w, r, h.transferService.GetTransaction)
}

func (h *TransactionHandler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	h.withTransaction(w, r, h.transferService.Confirm)
}

func (h *TransactionHandler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	h.withTransaction(w, r, h.transferService.Reject)
}

type transactionAction func(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error)

// withTransaction resolves the acting user and the {transaction_id} path variable, then runs action.
func (h *TransactionHandler) withTransaction(w http.ResponseWriter, r *http.Request, action transactionAction) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "UNAUTHORIZED", "A valid bearer token is required", http.StatusUnauthorized)
		return
	}

	transactionID, err := uuid.Parse(mux.Vars(r)["transaction_id"])
	if err != nil {
		sendJSONError(w, "INVALID_TRANSACTION_ID", "transaction_id must be a UUID", http.StatusBadRequest)
		return
	}

	transaction, err := action(r.Context(), transactionID, userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, transaction)
}
