package ledger

const (
	accountColumns = `id, email, plan, COALESCE(plan_period, ''), credits,
		COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''), created_at, updated_at`

	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	queryFindByCustomerID = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE stripe_customer_id = $1
		LIMIT 1
	`

	queryGetBalance = `
		SELECT credits, plan, COALESCE(plan_period, '')
		FROM accounts
		WHERE id = $1
	`

	// xmax = 0 only for freshly inserted rows
	queryEnsureAccount = `
		INSERT INTO accounts (id, email, credits)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET
			email = CASE WHEN accounts.email = '' THEN EXCLUDED.email ELSE accounts.email END
		RETURNING credits, (xmax = 0) AS inserted
	`

	queryDebit = `
		UPDATE accounts
		SET credits = credits - $1, updated_at = NOW()
		WHERE id = $2 AND credits >= $1
		RETURNING credits
	`

	queryCredit = `
		UPDATE accounts
		SET credits = credits + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING credits
	`

	queryLockCredits = `
		SELECT credits
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	queryApplyPlan = `
		UPDATE accounts
		SET plan = $2,
			plan_period = NULLIF($3, ''),
			stripe_subscription_id = COALESCE(NULLIF($4, ''), stripe_subscription_id),
			credits = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING credits
	`

	queryDowngrade = `
		UPDATE accounts
		SET plan = 'free', plan_period = NULL, stripe_subscription_id = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING credits
	`

	querySetCustomerID = `
		UPDATE accounts
		SET stripe_customer_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	queryInsertTransaction = `
		INSERT INTO credit_transactions (id, account_id, amount, kind, reason, balance_after, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`

	queryMarkEventProcessed = `
		INSERT INTO processed_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`

	queryListTransactions = `
		SELECT id, account_id, amount, kind, reason, balance_after, COALESCE(event_id, ''), created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	queryCountTransactions = `
		SELECT COUNT(*)
		FROM credit_transactions
		WHERE account_id = $1
	`
)
