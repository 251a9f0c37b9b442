package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-manager/internal/migrations"
	"github.com/magabrotheeeer/subscription-manager/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	projectRoot, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(projectRoot, "migrations")))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return storage, cleanup
}

// TestDataFactory создаёт строки напрямую в базе в обход проверяемых методов.
type TestDataFactory struct {
	storage *Storage
}

func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

func (f *TestDataFactory) CreateUser(t *testing.T, username, email string) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, 'hash', 'user') RETURNING id`, username, email).Scan(&id)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CreatePlan(t *testing.T, name string, price int64, durationDays int) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO subscription_plans (name, price, duration_days)
		VALUES ($1, $2, $3) RETURNING id`, name, price, durationDays).Scan(&id)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CreateSubscription(t *testing.T, userID, planID int64, start time.Time,
	end *time.Time, status models.SubscriptionStatus) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO user_subscriptions
		(user_id, plan_id, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $3, $3) RETURNING id`,
		userID, planID, start, end, status).Scan(&id)
	require.NoError(t, err)
	return id
}

func (f *TestDataFactory) CountActive(t *testing.T, userID int64) int {
	var n int
	err := f.storage.DB.QueryRow(`SELECT COUNT(*) FROM user_subscriptions
		WHERE user_id = $1 AND status = 'active'`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}
