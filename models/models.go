package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionKindSend    TransactionKind = "send"
	TransactionKindRequest TransactionKind = "request"
)

func (k TransactionKind) Valid() bool {
	return k == TransactionKindSend || k == TransactionKindRequest
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

// Terminal reports whether no transition may leave the status.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusRejected
}

type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	FullName  string    `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Balance is kept in minor units.
type Account struct {
	ID        int64     `json:"-" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

type Transaction struct {
	ID                   int64             `json:"-" db:"id"`
	TransactionID        uuid.UUID         `json:"transaction_id" db:"transaction_id"`
	Kind                 TransactionKind   `json:"kind" db:"kind"`
	InitiatorID          uuid.UUID         `json:"initiator_id" db:"initiator_id"`
	CounterpartyID       uuid.UUID         `json:"counterparty_id" db:"counterparty_id"`
	InitiatorUsername    string            `json:"initiator_username,omitempty" db:"-"`
	CounterpartyUsername string            `json:"counterparty_username,omitempty" db:"-"`
	Amount               int64             `json:"amount" db:"amount"`
	Description          string            `json:"description" db:"description"`
	Status               TransactionStatus `json:"status" db:"status"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// NewTransaction builds a pending transaction after validating it.
func NewTransaction(kind TransactionKind, initiatorID, counterpartyID uuid.UUID, amount int64, description string) (*Transaction, error) {
	txn := &Transaction{
		TransactionID:  uuid.New(),
		Kind:           kind,
		InitiatorID:    initiatorID,
		CounterpartyID: counterpartyID,
		Amount:         amount,
		Description:    description,
		Status:         TransactionStatusPending,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	return txn, nil
}

func (t *Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}

	if t.Amount <= 0 {
		return ErrInvalidAmount
	}

	if t.InitiatorID == t.CounterpartyID {
		return ErrSelfTransfer
	}

	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}

	return nil
}

// Parties returns who pays and who gets paid once the transaction is confirmed.
// A request is fulfilled by the counterparty paying the initiator.
func (t *Transaction) Parties() (payerID, payeeID uuid.UUID) {
	if t.Kind == TransactionKindRequest {
		return t.CounterpartyID, t.InitiatorID
	}
	return t.InitiatorID, t.CounterpartyID
}

// Approver is the party allowed to confirm or reject: always the one who did not initiate.
func (t *Transaction) Approver() uuid.UUID {
	return t.CounterpartyID
}

func (t *Transaction) Involves(userID uuid.UUID) bool {
	return t.InitiatorID == userID || t.CounterpartyID == userID
}

type RegisterUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	FullName string `json:"full_name" validate:"max=128"`
}

type CreateTransactionRequest struct {
	Kind                 string `json:"kind" validate:"required,oneof=send request"`
	CounterpartyUsername string `json:"counterparty_username" validate:"required"`
	Amount               string `json:"amount" validate:"required"`
	Description          string `json:"description" validate:"required"`
}

type BalanceResponse struct {
	UserID         uuid.UUID `json:"user_id"`
	Balance        int64     `json:"balance"`
	BalanceDisplay string    `json:"balance_display"`
}

type TransactionListResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

// NormalizeUsername lower-cases and trims a username for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
