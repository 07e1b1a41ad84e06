package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	tests := []struct {
		name        string
		kind        TransactionKind
		counterpart uuid.UUID
		amount      int64
		description string
		wantErr     error
	}{
		{name: "valid send", kind: TransactionKindSend, counterpart: bob, amount: 3000, description: "lunch"},
		{name: "valid request", kind: TransactionKindRequest, counterpart: bob, amount: 500, description: "owe"},
		{name: "zero amount", kind: TransactionKindSend, counterpart: bob, amount: 0, description: "x", wantErr: ErrInvalidAmount},
		{name: "negative amount", kind: TransactionKindSend, counterpart: bob, amount: -10, description: "x", wantErr: ErrInvalidAmount},
		{name: "self transfer", kind: TransactionKindSend, counterpart: alice, amount: 10, description: "x", wantErr: ErrSelfTransfer},
		{name: "blank description", kind: TransactionKindSend, counterpart: bob, amount: 10, description: "   ", wantErr: ErrEmptyDescription},
		{name: "unknown kind", kind: "refund", counterpart: bob, amount: 10, description: "x", wantErr: ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn, err := NewTransaction(tt.kind, alice, tt.counterpart, tt.amount, tt.description)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, errors.Is(err, ErrValidation), "every input error is a validation error")
				assert.Nil(t, txn)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, TransactionStatusPending, txn.Status)
			assert.NotEqual(t, uuid.Nil, txn.TransactionID)
		})
	}
}

func TestNewTransactionKeepsDescriptionVerbatim(t *testing.T) {
	txn, err := NewTransaction(TransactionKindSend, uuid.New(), uuid.New(), 100, "  rent\n for March ")
	require.NoError(t, err)
	assert.Equal(t, "  rent\n for March ", txn.Description)
}

func TestTransactionParties(t *testing.T) {
	initiator := uuid.New()
	counterparty := uuid.New()

	send := &Transaction{Kind: TransactionKindSend, InitiatorID: initiator, CounterpartyID: counterparty}
	payer, payee := send.Parties()
	assert.Equal(t, initiator, payer)
	assert.Equal(t, counterparty, payee)
	assert.Equal(t, counterparty, send.Approver())

	request := &Transaction{Kind: TransactionKindRequest, InitiatorID: initiator, CounterpartyID: counterparty}
	payer, payee = request.Parties()
	assert.Equal(t, counterparty, payer)
	assert.Equal(t, initiator, payee)
	assert.Equal(t, counterparty, request.Approver())

	assert.True(t, send.Involves(initiator))
	assert.False(t, send.Involves(uuid.New()))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "30", want: 3000},
		{in: "30.5", want: 3050},
		{in: " 0.01 ", want: 1},
		{in: "100.00", want: 10000},
		{in: "0", wantErr: true},
		{in: "-1.00", wantErr: true},
		{in: "1.001", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			assert.True(t, errors.Is(err, ErrValidation), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "70.00", FormatAmount(7000))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "0.00", FormatAmount(0))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "bob", NormalizeUsername("  Bob "))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, TransactionStatusPending.Terminal())
	assert.True(t, TransactionStatusCompleted.Terminal())
	assert.True(t, TransactionStatusRejected.Terminal())
}
