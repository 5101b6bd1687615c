package generation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nxtgenia/miniaturia/internal/kie"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

const (
	MaxPromptLength = 5000
	MaxImages       = 10

	debitTimeout = 10 * time.Second
)

// returns the defaults used in production
func DefaultConfig() Config {
	return Config{
		Cost:         10,
		PollInterval: 2 * time.Second,
		MaxAttempts:  120,
		Model:        "nano-banana-pro",
		AspectRatio:  "16:9",
		Resolution:   "1K",
		OutputFormat: "png",
	}
}

// creates a new orchestrator; zero config fields fall back to the defaults
func NewOrchestrator(l Ledger, jobs JobClient, config Config) *Orchestrator {
	def := DefaultConfig()

	if config.Cost <= 0 {
		config.Cost = def.Cost
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.AspectRatio == "" {
		config.AspectRatio = def.AspectRatio
	}
	if config.Resolution == "" {
		config.Resolution = def.Resolution
	}
	if config.OutputFormat == "" {
		config.OutputFormat = def.OutputFormat
	}

	return &Orchestrator{ledger: l, jobs: jobs, config: config}
}

// registers a hook that sees every state transition
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

// credits charged per successful generation
func (o *Orchestrator) Cost() int {
	return o.config.Cost
}

// longest time Generate can spend polling
func (o *Orchestrator) PollBudget() time.Duration {
	return o.config.PollInterval * time.Duration(o.config.MaxAttempts)
}

// runs one job: credit check, submit, bounded poll, then debit on success
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With("account_id", req.AccountID)

	// advisory only, the debit below is authoritative
	o.emit(StateCheckingCredits, 0)

	balance, err := o.ledger.GetBalance(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	if balance.Credits < o.config.Cost {
		o.emit(StateInsufficientCredits, 0)
		return nil, &ledger.InsufficientCreditsError{Required: o.config.Cost, Available: balance.Credits}
	}

	o.emit(StateSubmitting, 0)

	taskID, err := o.jobs.Submit(ctx, kie.JobRequest{
		Model:        o.config.Model,
		Prompt:       req.Prompt,
		ImageURLs:    req.ImageURLs,
		AspectRatio:  o.config.AspectRatio,
		Resolution:   o.config.Resolution,
		OutputFormat: o.config.OutputFormat,
	})
	if err != nil {
		o.emit(StateFailed, 0)
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}

	log = log.With("task_id", taskID)
	log.Info("generation task submitted")

	resultURL, attempts, err := o.poll(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result := &Result{URL: resultURL, TaskID: taskID, Attempts: attempts}

	// the asset exists now; a client hanging up must not skip the charge
	debitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), debitTimeout)
	defer cancel()

	newBalance, err := o.ledger.Debit(debitCtx, req.AccountID, o.config.Cost, "generation:"+taskID)
	if err != nil {
		result.BillingAnomaly = true

		var ice *ledger.InsufficientCreditsError
		if errors.As(err, &ice) {
			result.Balance = ice.Available
		}

		log.Error("billing anomaly: generation succeeded but debit failed",
			"cost", o.config.Cost,
			"error", err,
		)

		return result, nil
	}

	result.Balance = newBalance
	log.Info("generation completed", "attempts", attempts, "credits", newBalance)

	return result, nil
}

func (o *Orchestrator) poll(ctx context.Context, taskID string) (string, int, error) {
	log := logger.FromContext(ctx).With("task_id", taskID)

	timer := time.NewTimer(o.config.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			log.Info("generation abandoned by client", "attempt", attempt)
			return "", attempt, err
		}

		if attempt > 1 {
			timer.Reset(o.config.PollInterval)
		}

		select {
		case <-ctx.Done():
			log.Info("generation abandoned by client", "attempt", attempt)
			return "", attempt, ctx.Err()
		case <-timer.C:
		}

		o.emit(StatePolling, attempt)

		status, err := o.jobs.Poll(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return "", attempt, ctx.Err()
			}
			log.Debug("poll failed, retrying", "attempt", attempt, "error", err)
			continue
		}

		switch status.State {
		case kie.StateSuccess:
			urls, err := kie.ParseResultURLs(status.ResultJSON)
			if err != nil || len(urls) == 0 || urls[0] == "" {
				o.emit(StateFailed, attempt)
				if err != nil {
					return "", attempt, fmt.Errorf("%w: %v", ErrEmptyResult, err)
				}
				return "", attempt, ErrEmptyResult
			}

			o.emit(StateSucceeded, attempt)
			return urls[0], attempt, nil

		case kie.StateFail:
			o.emit(StateFailed, attempt)
			return "", attempt, &FailedError{TaskID: taskID, Reason: status.FailMsg}
		}
	}

	o.emit(StateTimedOut, o.config.MaxAttempts)
	log.Warn("generation timed out", "attempts", o.config.MaxAttempts)

	return "", o.config.MaxAttempts, ErrTimedOut
}

func (o *Orchestrator) emit(state State, attempt int) {
	if o.observer != nil {
		o.observer(state, attempt)
	}
}

// checks prompt and reference images before anything is spent
func Validate(req Request) error {
	prompt := strings.TrimSpace(req.Prompt)

	if prompt == "" {
		return &ValidationError{Field: "prompt", Message: "is required"}
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return &ValidationError{Field: "prompt", Message: fmt.Sprintf("must be at most %d characters", MaxPromptLength)}
	}

	// zero images is a text-only generation
	if len(req.ImageURLs) > MaxImages {
		return &ValidationError{Field: "imageUrls", Message: fmt.Sprintf("at most %d images are allowed", MaxImages)}
	}

	for i, raw := range req.ImageURLs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: fmt.Sprintf("imageUrls[%d]", i), Message: "must be an absolute http(s) url"}
		}
	}

	return nil
}
