package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"diet-planner/config"
	"diet-planner/internal/models"
)

var ErrNotFound = errors.New("not found")

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.DBConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)
	if cfg.URL != "" {
		connStr = cfg.URL
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the tables the planner needs if they are missing.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id          BIGSERIAL PRIMARY KEY,
        telegram_id BIGINT UNIQUE NOT NULL,
        chat_id     BIGINT NOT NULL,
        username    TEXT NOT NULL DEFAULT '',
        profile     JSONB NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS payments (
        id                BIGSERIAL PRIMARY KEY,
        user_id           BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        amount            BIGINT NOT NULL,
        currency          TEXT NOT NULL,
        stripe_payment_id TEXT UNIQUE NOT NULL,
        status            TEXT NOT NULL,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS plans (
        id          UUID PRIMARY KEY,
        user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        status      TEXT NOT NULL,
        plan        JSONB NOT NULL,
        profile     JSONB NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        archived_at TIMESTAMPTZ
    );

    CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_one_active ON plans(user_id) WHERE status = 'active';
    CREATE INDEX IF NOT EXISTS idx_plans_user_archived ON plans(user_id, archived_at DESC);
    `

	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (db *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `
        INSERT INTO users (telegram_id, chat_id, username, profile)
        VALUES ($1, $2, $3, $4::jsonb)
        ON CONFLICT (telegram_id) DO UPDATE
        SET chat_id = $2, username = $3, profile = $4::jsonb, updated_at = NOW()
        RETURNING id
    `

	return db.pool.QueryRow(ctx, query,
		user.TelegramID, user.ChatID, user.Username, string(profile),
	).Scan(&user.ID)
}

func (db *PostgresDB) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `
        SELECT id, telegram_id, chat_id, username, profile, created_at, updated_at
        FROM users
        WHERE telegram_id = $1
    `

	var (
		user    models.User
		profile []byte
	)
	err := db.pool.QueryRow(ctx, query, telegramID).Scan(
		&user.ID, &user.TelegramID, &user.ChatID, &user.Username,
		&profile, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(profile, &user.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &user, nil
}

func (db *PostgresDB) SavePayment(ctx context.Context, payment *models.Payment) error {
	query := `
        INSERT INTO payments (user_id, amount, currency, stripe_payment_id, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	return db.pool.QueryRow(ctx, query,
		payment.UserID, payment.Amount, payment.Currency,
		payment.StripePaymentID, payment.Status,
	).Scan(&payment.ID)
}

// CompletePayment moves a pending payment to completed. It returns
// ErrNotFound when no pending payment matches, including one that was
// already completed by an earlier webhook delivery.
func (db *PostgresDB) CompletePayment(ctx context.Context, stripePaymentID string) error {
	query := `
        UPDATE payments
        SET status = $2, updated_at = NOW()
        WHERE stripe_payment_id = $1 AND status = $3
    `

	tag, err := db.pool.Exec(ctx, query, stripePaymentID, models.PaymentCompleted, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgresDB) GetPaymentByStripeID(ctx context.Context, stripePaymentID string) (*models.Payment, error) {
	query := `
        SELECT id, user_id, amount, currency, stripe_payment_id, status, created_at, updated_at
        FROM payments
        WHERE stripe_payment_id = $1
    `

	var payment models.Payment
	err := db.pool.QueryRow(ctx, query, stripePaymentID).Scan(
		&payment.ID, &payment.UserID, &payment.Amount, &payment.Currency,
		&payment.StripePaymentID, &payment.Status,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by Stripe ID: %w", notFound(err))
	}

	return &payment, nil
}

// SaveActivePlan stores plan as the user's active plan. A previous active
// plan is marked discarded in the same transaction. An empty plan ID is
// replaced with a new UUID.
func (db *PostgresDB) SaveActivePlan(ctx context.Context, userID int64, profile models.UserProfile, plan *models.WeeklyPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt == nil {
		now := time.Now().UTC()
		plan.CreatedAt = &now
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE plans SET status = $2 WHERE user_id = $1 AND status = $3`,
		userID, string(models.PlanDiscarded), string(models.PlanActive))
	if err != nil {
		return fmt.Errorf("failed to discard previous plan: %w", err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO plans (id, user_id, status, plan, profile, created_at)
        VALUES ($1::uuid, $2, $3, $4::jsonb, $5::jsonb, $6)
    `, plan.ID, userID, string(models.PlanActive), string(planJSON), string(profileJSON), *plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	return tx.Commit(ctx)
}

func (db *PostgresDB) GetActivePlan(ctx context.Context, userID int64) (*models.WeeklyPlan, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx,
		`SELECT plan FROM plans WHERE user_id = $1 AND status = $2`,
		userID, string(models.PlanActive),
	).Scan(&raw)
	if err != nil {
		return nil, notFound(err)
	}

	var plan models.WeeklyPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// FinishActivePlan moves the active plan into the history.
func (db *PostgresDB) FinishActivePlan(ctx context.Context, userID int64) error {
	return db.closeActivePlan(ctx, userID, models.PlanArchived)
}

func (db *PostgresDB) DiscardActivePlan(ctx context.Context, userID int64) error {
	return db.closeActivePlan(ctx, userID, models.PlanDiscarded)
}

func (db *PostgresDB) closeActivePlan(ctx context.Context, userID int64, status models.PlanStatus) error {
	tag, err := db.pool.Exec(ctx, `
        UPDATE plans SET status = $2, archived_at = NOW()
        WHERE user_id = $1 AND status = $3
    `, userID, string(status), string(models.PlanActive))
	if err != nil {
		return fmt.Errorf("failed to close active plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListHistory returns archived plans, newest first.
func (db *PostgresDB) ListHistory(ctx context.Context, userID int64, limit int) ([]models.PlanHistoryEntry, error) {
	rows, err := db.pool.Query(ctx, `
        SELECT id::text, plan, profile, archived_at
        FROM plans
        WHERE user_id = $1 AND status = $2
        ORDER BY archived_at DESC
        LIMIT $3
    `, userID, string(models.PlanArchived), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.PlanHistoryEntry
	for rows.Next() {
		var (
			entry         models.PlanHistoryEntry
			plan, profile []byte
		)
		if err := rows.Scan(&entry.ID, &plan, &profile, &entry.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal(plan, &entry.Plan); err != nil {
			return nil, fmt.Errorf("failed to decode plan: %w", err)
		}
		if err := json.Unmarshal(profile, &entry.Profile); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
