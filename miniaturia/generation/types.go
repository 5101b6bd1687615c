package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nxtgenia/miniaturia/internal/kie"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

var (
	ErrTimedOut    = errors.New("generation timed out")
	ErrEmptyResult = errors.New("generation finished without a result url")
)

// job lifecycle, reported to the Observer
type State string

const (
	StateCheckingCredits     State = "checking_credits"
	StateInsufficientCredits State = "insufficient_credits"
	StateSubmitting          State = "submitting"
	StatePolling             State = "polling"
	StateSucceeded           State = "succeeded"
	StateFailed              State = "failed"
	StateTimedOut            State = "timed_out"
)

// receives every state transition; attempt is the poll number while polling
type Observer func(state State, attempt int)

// balance reads and the charge after a successful job
type Ledger interface {
	GetBalance(ctx context.Context, accountID string) (*ledger.Balance, error)
	Debit(ctx context.Context, accountID string, amount int, reason string) (int, error)
}

// the asynchronous image job API
type JobClient interface {
	Submit(ctx context.Context, job kie.JobRequest) (string, error)
	Poll(ctx context.Context, taskID string) (*kie.TaskStatus, error)
}

type Config struct {
	Cost         int
	PollInterval time.Duration
	MaxAttempts  int

	Model        string
	AspectRatio  string
	Resolution   string
	OutputFormat string
}

// runs credit-metered generation jobs
type Orchestrator struct {
	ledger   Ledger
	jobs     JobClient
	config   Config
	observer Observer
}

type Request struct {
	AccountID string
	Prompt    string
	ImageURLs []string
}

type Result struct {
	URL      string `json:"url"`
	TaskID   string `json:"task_id"`
	Balance  int    `json:"credits"`
	Attempts int    `json:"-"`
	// the asset was produced but the charge did not land
	BillingAnomaly bool `json:"-"`
}

// request rejected before any external call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// the job API reported an explicit failure
type FailedError struct {
	TaskID string
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason == "" {
		return "generation failed"
	}
	return "generation failed: " + e.Reason
}
