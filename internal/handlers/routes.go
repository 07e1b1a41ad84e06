package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"ledger-service/internal/logger"
)

func SetupRoutes(accountHandler *AccountHandler, transactionHandler *TransactionHandler, auth *Authenticator, log *logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger(log))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"OK"}`))
	}).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/users", accountHandler.Register).Methods("POST")
	api.HandleFunc("/accounts/me", accountHandler.GetBalance).Methods("GET")

	api.HandleFunc("/transactions", transactionHandler.CreateTransaction).Methods("POST")
	api.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods("GET")
	api.HandleFunc("/transactions/{transaction_id}", transactionHandler.GetTransaction).Methods("GET")
	api.HandleFunc("/transactions/{transaction_id}/confirm", transactionHandler.ConfirmTransaction).Methods("POST")
	api.HandleFunc("/transactions/{transaction_id}/reject", transactionHandler.RejectTransaction).Methods("POST")

	return router
}
