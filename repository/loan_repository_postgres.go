package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loan-calculator/domain"
)

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string
	User     string
	Password string
	Database string
	SSLMode  string
	Port     int
	MaxConns int32
	MinConns int32
}

// DSN returns a PostgreSQL connection string built from the config fields.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// NewPostgresPool creates a pgxpool.Pool and verifies connectivity.
func NewPostgresPool(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	poolCfg.MaxConnLifetime = 1 * time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id                 UUID PRIMARY KEY,
		loan_amount        NUMERIC(20, 2) NOT NULL,
		interest_rate      NUMERIC(12, 6) NOT NULL,
		number_of_payments INTEGER NOT NULL,
		periodic_payment   NUMERIC(20, 2) NOT NULL,
		total_payment      NUMERIC(20, 2) NOT NULL,
		total_interest     NUMERIC(20, 2) NOT NULL,
		scheduled_payment  NUMERIC(20, 2) NOT NULL,
		scheduled_interest NUMERIC(20, 2) NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loan_schedule_entries (
		loan_id          UUID NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
		period           INTEGER NOT NULL,
		payment          NUMERIC(20, 2) NOT NULL,
		principal_amount NUMERIC(20, 2) NOT NULL,
		interest_amount  NUMERIC(20, 2) NOT NULL,
		balance_owed     NUMERIC(20, 2) NOT NULL,
		PRIMARY KEY (loan_id, period)
	)`,
}

// LoanRepositoryPostgres implements LoanRepository on PostgreSQL.
type LoanRepositoryPostgres struct {
	pool *pgxpool.Pool
}

func NewLoanRepositoryPostgres(pool *pgxpool.Pool) *LoanRepositoryPostgres {
	return &LoanRepositoryPostgres{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (r *LoanRepositoryPostgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresMigrations {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// Save persists a loan and its amortization schedule.
func (r *LoanRepositoryPostgres) Save(ctx context.Context, loan domain.LoanResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO loans (
			id, loan_amount, interest_rate, number_of_payments,
			periodic_payment, total_payment, total_interest,
			scheduled_payment, scheduled_interest, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		loan.LoanID, loan.LoanAmount.Decimal, loan.InterestRate.Decimal, loan.NumberOfPayments,
		loan.PeriodicPayment.Decimal, loan.TotalPayment.Decimal, loan.TotalInterest.Decimal,
		loan.ScheduledPayment.Decimal, loan.ScheduledInterest.Decimal, loan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save loan: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range loan.PaymentSchedule {
		batch.Queue(`
			INSERT INTO loan_schedule_entries (
				loan_id, period, payment, principal_amount, interest_amount, balance_owed
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			loan.LoanID, e.Period,
			e.Payment.Decimal, e.PrincipalAmount.Decimal, e.InterestAmount.Decimal, e.BalanceOwed.Decimal,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}

	return tx.Commit(ctx)
}

// FindByID retrieves a loan and its schedule.
func (r *LoanRepositoryPostgres) FindByID(ctx context.Context, id string) (domain.LoanResult, error) {
	// ids are UUID columns; anything else cannot exist.
	if _, err := uuid.Parse(id); err != nil {
		return domain.LoanResult{}, ErrNotFound
	}

	var loan domain.LoanResult
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, loan_amount, interest_rate, number_of_payments,
		       periodic_payment, total_payment, total_interest,
		       scheduled_payment, scheduled_interest, created_at
		FROM loans
		WHERE id = $1`, id,
	).Scan(
		&loan.LoanID, &loan.LoanAmount.Decimal, &loan.InterestRate.Decimal, &loan.NumberOfPayments,
		&loan.PeriodicPayment.Decimal, &loan.TotalPayment.Decimal, &loan.TotalInterest.Decimal,
		&loan.ScheduledPayment.Decimal, &loan.ScheduledInterest.Decimal, &loan.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LoanResult{}, ErrNotFound
	}
	if err != nil {
		return domain.LoanResult{}, fmt.Errorf("find loan %s: %w", id, err)
	}
	loan.CreatedAt = loan.CreatedAt.UTC()

	rows, err := r.pool.Query(ctx, `
		SELECT period, payment, principal_amount, interest_amount, balance_owed
		FROM loan_schedule_entries
		WHERE loan_id = $1
		ORDER BY period`, id)
	if err != nil {
		return domain.LoanResult{}, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.PaymentScheduleEntry
		if err := rows.Scan(&e.Period,
			&e.Payment.Decimal, &e.PrincipalAmount.Decimal, &e.InterestAmount.Decimal, &e.BalanceOwed.Decimal,
		); err != nil {
			return domain.LoanResult{}, fmt.Errorf("scan schedule entry: %w", err)
		}
		loan.PaymentSchedule = append(loan.PaymentSchedule, e)
	}
	return loan, rows.Err()
}

// Ping checks database connectivity.
func (r *LoanRepositoryPostgres) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check: %w", err)
	}
	return nil
}
