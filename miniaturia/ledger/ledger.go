package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

// creates a new ledger repository
func NewRepository(db *pgxpool.Pool, signupCredits int) *Repository {
	return &Repository{db: db, signupCredits: signupCredits}
}

// returns the credits and plan for an account
func (r *Repository) GetBalance(ctx context.Context, accountID string) (*Balance, error) {
	var (
		b            Balance
		plan, period string
	)

	err := r.db.QueryRow(ctx, queryGetBalance, accountID).Scan(&b.Credits, &plan, &period)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	b.Plan = catalog.Plan(plan)
	b.PlanPeriod = catalog.Period(period)

	return &b, nil
}

// returns the full account row
func (r *Repository) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	return r.findAccount(ctx, queryGetAccount, accountID)
}

// returns the account holding a stripe customer reference
func (r *Repository) FindByCustomerID(ctx context.Context, customerID string) (*Account, error) {
	return r.findAccount(ctx, queryFindByCustomerID, customerID)
}

func (r *Repository) findAccount(ctx context.Context, query, arg string) (*Account, error) {
	acc, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// creates the account on first sight with the signup grant, then returns it
func (r *Repository) EnsureAccount(ctx context.Context, accountID, email string) (*Account, error) {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var (
			credits  int
			inserted bool
		)

		if err := tx.QueryRow(ctx, queryEnsureAccount, accountID, email, r.signupCredits).Scan(&credits, &inserted); err != nil {
			return fmt.Errorf("failed to ensure account: %w", err)
		}

		if inserted && r.signupCredits > 0 {
			return insertTransaction(ctx, tx, accountID, r.signupCredits, KindGrant, "signup", credits, "")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetAccount(ctx, accountID)
}

// atomically removes amount credits; never drives the balance negative
func (r *Repository) Debit(ctx context.Context, accountID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, queryDebit, amount, accountID).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			// zero rows: either the account is missing or the guard failed
			var available int
			if lookupErr := tx.QueryRow(ctx, queryGetBalance, accountID).Scan(&available, new(string), new(string)); lookupErr != nil {
				if errors.Is(lookupErr, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("failed to read balance: %w", lookupErr)
			}
			return &InsufficientCreditsError{Required: amount, Available: available}
		}
		if err != nil {
			return fmt.Errorf("failed to debit credits: %w", err)
		}

		return insertTransaction(ctx, tx, accountID, -amount, KindUsage, reason, balance, "")
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// adds amount credits as a manual grant
func (r *Repository) Credit(ctx context.Context, accountID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = credit(ctx, tx, accountID, amount)
		if err != nil {
			return err
		}

		return insertTransaction(ctx, tx, accountID, amount, KindGrant, reason, balance, "")
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// adds a pack purchase once per payment event
func (r *Repository) CreditForEvent(ctx context.Context, eventID, eventType, accountID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := markProcessed(ctx, tx, eventID, eventType); err != nil {
			return err
		}

		var err error
		balance, err = credit(ctx, tx, accountID, amount)
		if err != nil {
			return err
		}

		return insertTransaction(ctx, tx, accountID, amount, KindPurchase, reason, balance, eventID)
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// sets the plan and resets the balance to the plan's full grant
func (r *Repository) ApplyPlan(ctx context.Context, change PlanChange) (int, error) {
	if change.Credits < 0 {
		return 0, ErrInvalidAmount
	}

	var balance int

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := markProcessed(ctx, tx, change.EventID, change.EventType); err != nil {
			return err
		}

		var previous int
		if err := tx.QueryRow(ctx, queryLockCredits, change.AccountID).Scan(&previous); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}

		err := tx.QueryRow(ctx, queryApplyPlan,
			change.AccountID,
			string(change.Plan),
			string(change.Period),
			change.SubscriptionID,
			change.Credits,
		).Scan(&balance)
		if err != nil {
			return fmt.Errorf("failed to apply plan: %w", err)
		}

		return insertTransaction(ctx, tx, change.AccountID, balance-previous, KindSubscription, change.Reason, balance, change.EventID)
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// moves the account back to the free plan; credits are kept
func (r *Repository) Downgrade(ctx context.Context, eventID, eventType, accountID string) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := markProcessed(ctx, tx, eventID, eventType); err != nil {
			return err
		}

		var balance int
		if err := tx.QueryRow(ctx, queryDowngrade, accountID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to downgrade account: %w", err)
		}

		return insertTransaction(ctx, tx, accountID, 0, KindAdjustment, "subscription cancelled", balance, eventID)
	})
}

// stores the stripe customer reference for an account
func (r *Repository) SetCustomerID(ctx context.Context, accountID, customerID string) error {
	tag, err := r.db.Exec(ctx, querySetCustomerID, accountID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set customer id: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// returns a page of the audit trail, newest first, plus the total count
func (r *Repository) Transactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, queryCountTransactions, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := r.db.Query(ctx, queryListTransactions, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}

	for rows.Next() {
		var (
			t    Transaction
			kind string
		)

		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &kind, &t.Reason, &t.BalanceAfter, &t.EventID, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}

		t.Kind = Kind(kind)
		txs = append(txs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, total, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func credit(ctx context.Context, tx pgx.Tx, accountID string, amount int) (int, error) {
	var balance int

	if err := tx.QueryRow(ctx, queryCredit, amount, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}

	return balance, nil
}

// records the event id; a conflict means it was already applied
func markProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string) error {
	if eventID == "" {
		return nil
	}

	tag, err := tx.Exec(ctx, queryMarkEventProcessed, eventID, eventType)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}

	return nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, accountID string, amount int, kind Kind, reason string, balanceAfter int, eventID string) error {
	_, err := tx.Exec(ctx, queryInsertTransaction,
		uuid.New(),
		accountID,
		amount,
		string(kind),
		reason,
		balanceAfter,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acc          Account
		plan, period string
	)

	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&plan,
		&period,
		&acc.Credits,
		&acc.StripeCustomerID,
		&acc.StripeSubscriptionID,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acc.Plan = catalog.Plan(plan)
	acc.PlanPeriod = catalog.Period(period)

	return &acc, nil
}
