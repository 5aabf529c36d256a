package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"loan-calculator/domain"
)

// sqliteMigrations returns the schema statements, one per Exec.
func sqliteMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS loans (
			id                 TEXT PRIMARY KEY,
			loan_amount        TEXT NOT NULL,
			interest_rate      TEXT NOT NULL,
			number_of_payments INTEGER NOT NULL,
			periodic_payment   TEXT NOT NULL,
			total_payment      TEXT NOT NULL,
			total_interest     TEXT NOT NULL,
			scheduled_payment  TEXT NOT NULL,
			scheduled_interest TEXT NOT NULL,
			created_at         TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS loan_schedule_entries (
			loan_id          TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
			period           INTEGER NOT NULL,
			payment          TEXT NOT NULL,
			principal_amount TEXT NOT NULL,
			interest_amount  TEXT NOT NULL,
			balance_owed     TEXT NOT NULL,
			PRIMARY KEY (loan_id, period)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_created_at ON loans(created_at)`,
	}
}

// LoanRepositorySQLite persists loans in a SQLite database.
type LoanRepositorySQLite struct {
	db *sql.DB
}

// OpenLoanRepositorySQLite opens (or creates) the database at dsn and
// applies the schema. Use ":memory:" for a throwaway database.
func OpenLoanRepositorySQLite(ctx context.Context, dsn string) (*LoanRepositorySQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	repo := &LoanRepositorySQLite{db: db}
	if err := repo.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *LoanRepositorySQLite) migrate(ctx context.Context) error {
	for _, stmt := range append([]string{`PRAGMA foreign_keys = ON`}, sqliteMigrations()...) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Save stores the loan and its schedule in one transaction.
func (r *LoanRepositorySQLite) Save(ctx context.Context, loan domain.LoanResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (
			id, loan_amount, interest_rate, number_of_payments,
			periodic_payment, total_payment, total_interest,
			scheduled_payment, scheduled_interest, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.LoanID, loan.LoanAmount.String(), loan.InterestRate.Decimal.String(), loan.NumberOfPayments,
		loan.PeriodicPayment.String(), loan.TotalPayment.String(), loan.TotalInterest.String(),
		loan.ScheduledPayment.String(), loan.ScheduledInterest.String(),
		loan.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save loan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO loan_schedule_entries (
			loan_id, period, payment, principal_amount, interest_amount, balance_owed
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare schedule insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range loan.PaymentSchedule {
		_, err := stmt.ExecContext(ctx, loan.LoanID, e.Period,
			e.Payment.String(), e.PrincipalAmount.String(), e.InterestAmount.String(), e.BalanceOwed.String())
		if err != nil {
			return fmt.Errorf("save schedule entry %d: %w", e.Period, err)
		}
	}

	return tx.Commit()
}

func (r *LoanRepositorySQLite) FindByID(ctx context.Context, id string) (domain.LoanResult, error) {
	var (
		loan      domain.LoanResult
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, loan_amount, interest_rate, number_of_payments,
		       periodic_payment, total_payment, total_interest,
		       scheduled_payment, scheduled_interest, created_at
		FROM loans
		WHERE id = ?`, id,
	).Scan(
		&loan.LoanID, &loan.LoanAmount, &loan.InterestRate, &loan.NumberOfPayments,
		&loan.PeriodicPayment, &loan.TotalPayment, &loan.TotalInterest,
		&loan.ScheduledPayment, &loan.ScheduledInterest, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LoanResult{}, ErrNotFound
	}
	if err != nil {
		return domain.LoanResult{}, fmt.Errorf("find loan %s: %w", id, err)
	}

	loan.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.LoanResult{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT period, payment, principal_amount, interest_amount, balance_owed
		FROM loan_schedule_entries
		WHERE loan_id = ?
		ORDER BY period`, id)
	if err != nil {
		return domain.LoanResult{}, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.PaymentScheduleEntry
		if err := rows.Scan(&e.Period, &e.Payment, &e.PrincipalAmount, &e.InterestAmount, &e.BalanceOwed); err != nil {
			return domain.LoanResult{}, fmt.Errorf("scan schedule entry: %w", err)
		}
		loan.PaymentSchedule = append(loan.PaymentSchedule, e)
	}
	return loan, rows.Err()
}

// Ping checks the database connection.
func (r *LoanRepositorySQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *LoanRepositorySQLite) Close() error {
	return r.db.Close()
}
