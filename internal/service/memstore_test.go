package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger-service/internal/repository"
	"ledger-service/models"
)

// memStore is an in-memory stand-in for Postgres. A unit of work holds the store
// lock for its whole duration and restores a snapshot when fn fails, which gives
// the same all-or-nothing behaviour as a database transaction.
type memStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
	accounts map[uuid.UUID]int64
	txns     map[uuid.UUID]models.Transaction
	seq      int64
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[uuid.UUID]models.Profile{},
		accounts: map[uuid.UUID]int64{},
		txns:     map[uuid.UUID]models.Transaction{},
	}
}

// seed registers a user directly with the given balance.
func (s *memStore) seed(username string, balance int64) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.profiles[id] = models.Profile{ID: id, Username: username, FullName: username, CreatedAt: time.Now()}
	s.accounts[id] = balance
	return id
}

func (s *memStore) balance(userID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[userID]
}

func (s *memStore) total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, b := range s.accounts {
		sum += b
	}
	return sum
}

func (s *memStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

func (s *memStore) repos(inTx bool) repository.Repositories {
	v := memView{s: s, inTx: inTx}
	return repository.Repositories{
		Accounts:     memAccounts{v},
		Transactions: memTransactions{v},
		Users:        memUsers{v},
	}
}

func (s *memStore) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make(map[uuid.UUID]models.Profile, len(s.profiles))
	for k, v := range s.profiles {
		profiles[k] = v
	}
	accounts := make(map[uuid.UUID]int64, len(s.accounts))
	for k, v := range s.accounts {
		accounts[k] = v
	}
	txns := make(map[uuid.UUID]models.Transaction, len(s.txns))
	for k, v := range s.txns {
		txns[k] = v
	}
	seq := s.seq

	if err := fn(s.repos(true)); err != nil {
		s.profiles, s.accounts, s.txns, s.seq = profiles, accounts, txns, seq
		return err
	}
	return nil
}

type memView struct {
	s    *memStore
	inTx bool
}

func (v memView) guard() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

type memAccounts struct{ memView }

func (a memAccounts) Open(_ context.Context, account *models.Account) error {
	defer a.guard()()
	if account.Balance < 0 {
		return models.ErrValidation
	}
	a.s.accounts[account.UserID] += account.Balance
	account.Balance = a.s.accounts[account.UserID]
	return nil
}

func (a memAccounts) GetBalance(_ context.Context, userID uuid.UUID) (int64, error) {
	defer a.guard()()
	return a.s.accounts[userID], nil
}

func (a memAccounts) EnsureExists(_ context.Context, userID uuid.UUID) error {
	defer a.guard()()
	if _, ok := a.s.accounts[userID]; !ok {
		a.s.accounts[userID] = 0
	}
	return nil
}

func (a memAccounts) Transfer(_ context.Context, payerID, payeeID uuid.UUID, amount int64) error {
	defer a.guard()()
	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	if payerID == payeeID {
		return models.ErrSelfTransfer
	}
	payer, ok := a.s.accounts[payerID]
	if !ok {
		return models.ErrAccountNotFound
	}
	if _, ok := a.s.accounts[payeeID]; !ok {
		return models.ErrAccountNotFound
	}
	if payer < amount {
		return models.ErrInsufficientFunds
	}
	a.s.accounts[payerID] -= amount
	a.s.accounts[payeeID] += amount
	return nil
}

type memTransactions struct{ memView }

func (t memTransactions) Create(_ context.Context, txn *models.Transaction) error {
	defer t.guard()()
	if err := txn.Validate(); err != nil {
		return err
	}
	t.s.seq++
	now := time.Now()
	txn.ID = t.s.seq
	txn.Status = models.TransactionStatusPending
	txn.CreatedAt, txn.UpdatedAt = now, now
	t.s.txns[txn.TransactionID] = *txn
	return nil
}

func (t memTransactions) get(id uuid.UUID) (*models.Transaction, error) {
	txn, ok := t.s.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, models.ErrNotFound)
	}
	return &txn, nil
}

func (t memTransactions) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	defer t.guard()()
	return t.get(id)
}

func (t memTransactions) GetByIDForUpdate(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	defer t.guard()()
	return t.get(id)
}

func (t memTransactions) Transition(_ context.Context, id uuid.UUID, expected, next models.TransactionStatus) (*models.Transaction, error) {
	defer t.guard()()
	if expected != models.TransactionStatusPending || !next.Terminal() {
		return nil, models.ErrInvalidTransition
	}
	txn, ok := t.s.txns[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if txn.Status != expected {
		return nil, models.ErrAlreadyProcessed
	}
	txn.Status = next
	txn.UpdatedAt = time.Now()
	t.s.txns[id] = txn
	return &txn, nil
}

func (t memTransactions) ListForUser(_ context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	defer t.guard()()
	list := make([]*models.Transaction, 0)
	for _, txn := range t.s.txns {
		if !txn.Involves(userID) {
			continue
		}
		txn := txn
		txn.InitiatorUsername = t.s.profiles[txn.InitiatorID].Username
		txn.CounterpartyUsername = t.s.profiles[txn.CounterpartyID].Username
		list = append(list, &txn)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

type memUsers struct{ memView }

func (u memUsers) Create(_ context.Context, profile *models.Profile) error {
	defer u.guard()()
	if _, ok := u.s.profiles[profile.ID]; ok {
		return models.ErrAccountExists
	}
	for _, p := range u.s.profiles {
		if p.Username == profile.Username {
			return models.ErrUsernameTaken
		}
	}
	profile.CreatedAt = time.Now()
	u.s.profiles[profile.ID] = *profile
	return nil
}

func (u memUsers) GetByUsername(_ context.Context, username string) (*models.Profile, error) {
	defer u.guard()()
	for _, p := range u.s.profiles {
		if p.Username == username {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", username, models.ErrUserNotFound)
}
