package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ledger-service/internal/database"
	"ledger-service/internal/handlers"
	"ledger-service/internal/logger"
	"ledger-service/internal/notify"
	"ledger-service/internal/repository"
	"ledger-service/internal/service"
	"ledger-service/models"
)

const (
	JWTSecret      = "integration-test-secret"
	NotifyPrefix   = "ledger:test"
	InitialBalance = int64(1000000)
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sql.DB
	Redis   *redis.Client
	Cleanup func()
	client  *http.Client
}

// SetupTestServer starts Postgres in a container, an in-process Redis, and the full HTTP stack.
func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	log, err := logger.New("ERROR", "")
	require.NoError(t, err)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "ledger_service_test",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := postgres.Host(ctx)
	require.NoError(t, err)
	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	databaseURL := fmt.Sprintf("postgres://postgres:password@%s:%s/ledger_service_test?sslmode=disable", host, port.Port())

	db, err := database.NewConnection(databaseURL, database.DefaultPoolOptions(), log)
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dispatcher := notify.NewDispatcher(notify.NewRedisPublisher(redisClient, NotifyPrefix, log), 1024, log)

	repos := repository.NewRepositories(db, log)
	uow := repository.NewUnitOfWork(db, log)

	userService := service.NewUserService(repos.Users, uow, InitialBalance, log)
	accountService := service.NewAccountService(repos.Accounts, log)
	transferService := service.NewTransferService(repos.Transactions, userService, uow, dispatcher, log)

	router := handlers.SetupRoutes(
		handlers.NewAccountHandler(accountService, userService),
		handlers.NewTransactionHandler(transferService),
		handlers.NewAuthenticator(JWTSecret, log),
		log,
	)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		dispatcher.Close()
		redisClient.Close()
		mr.Close()
		db.Close()
		postgres.Terminate(ctx)
	}

	return &TestServer{
		Server:  server,
		DB:      db,
		Redis:   redisClient,
		Cleanup: cleanup,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Request performs an authenticated call as userID; uuid.Nil sends no token.
// It never fails the test itself so it can be used from worker goroutines.
func (ts *TestServer) Request(method, path string, userID uuid.UUID, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if userID != uuid.Nil {
		token, err := handlers.IssueToken(JWTSecret, userID, time.Hour)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}

func (ts *TestServer) mustRequest(t *testing.T, method, path string, userID uuid.UUID, body interface{}) (int, []byte) {
	t.Helper()

	status, raw, err := ts.Request(method, path, userID, body)
	require.NoError(t, err)
	return status, raw
}

// UniqueUsername keeps usernames distinct across tests sharing one database.
func UniqueUsername(prefix string) string {
	return strings.ToLower(prefix) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RegisterUser registers a fresh identity and sets its balance, in minor units.
func (ts *TestServer) RegisterUser(t *testing.T, username string, balance int64) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	status, raw := ts.mustRequest(t, http.MethodPost, "/users", userID, models.RegisterUserRequest{Username: username})
	require.Equal(t, http.StatusCreated, status, string(raw))

	ts.SetBalance(t, userID, balance)
	return userID
}

func (ts *TestServer) SetBalance(t *testing.T, userID uuid.UUID, balance int64) {
	t.Helper()

	_, err := ts.DB.Exec(`UPDATE accounts SET balance = $1 WHERE user_id = $2`, balance, userID)
	require.NoError(t, err)
}

func (ts *TestServer) GetBalance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()

	status, raw := ts.mustRequest(t, http.MethodGet, "/accounts/me", userID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var resp models.BalanceResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp.Balance
}

// TotalBalance sums every account directly in the database.
func (ts *TestServer) TotalBalance(t *testing.T) int64 {
	t.Helper()

	var total int64
	require.NoError(t, ts.DB.QueryRow(`SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&total))
	return total
}

func (ts *TestServer) CreateTransaction(t *testing.T, userID uuid.UUID, kind models.TransactionKind, counterparty, amount, description string) *models.Transaction {
	t.Helper()

	status, raw := ts.mustRequest(t, http.MethodPost, "/transactions", userID, models.CreateTransactionRequest{
		Kind:                 string(kind),
		CounterpartyUsername: counterparty,
		Amount:               amount,
		Description:          description,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	var txn models.Transaction
	require.NoError(t, json.Unmarshal(raw, &txn))
	return &txn
}

func (ts *TestServer) Confirm(transactionID, userID uuid.UUID) (int, error) {
	status, _, err := ts.Request(http.MethodPost, fmt.Sprintf("/transactions/%s/confirm", transactionID), userID, nil)
	return status, err
}

func (ts *TestServer) Reject(transactionID, userID uuid.UUID) (int, error) {
	status, _, err := ts.Request(http.MethodPost, fmt.Sprintf("/transactions/%s/reject", transactionID), userID, nil)
	return status, err
}

func (ts *TestServer) GetTransaction(t *testing.T, transactionID, userID uuid.UUID) (int, *models.Transaction) {
	t.Helper()

	status, raw := ts.mustRequest(t, http.MethodGet, fmt.Sprintf("/transactions/%s", transactionID), userID, nil)
	if status != http.StatusOK {
		return status, nil
	}

	var txn models.Transaction
	require.NoError(t, json.Unmarshal(raw, &txn))
	return status, &txn
}

func (ts *TestServer) ListTransactions(t *testing.T, userID uuid.UUID) []*models.Transaction {
	t.Helper()

	status, raw := ts.mustRequest(t, http.MethodGet, "/transactions", userID, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	var resp models.TransactionListResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp.Transactions
}

// Subscribe listens on a user's notification channel.
func (ts *TestServer) Subscribe(t *testing.T, userID uuid.UUID) <-chan *redis.Message {
	t.Helper()

	ctx := context.Background()
	sub := ts.Redis.Subscribe(ctx, notify.Channel(NotifyPrefix, userID))
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })

	return sub.Channel()
}
