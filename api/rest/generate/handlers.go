package generate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/errors"
	"github.com/nxtgenia/miniaturia/internal/idempotency"
	"github.com/nxtgenia/miniaturia/internal/kie"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/miniaturia/generation"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// nginx convention for a client that went away mid-request
const statusClientClosedRequest = 499

// Handler godoc
// @Summary Generate a thumbnail
// @Description Submits a generation job, waits for the result and charges credits on success. Send an Idempotency-Key header to make retries safe.
// @Tags generate
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated retry key"
// @Param request body Request true "Prompt and reference images"
// @Success 200 {object} Response
// @Failure 400 {object} errors.InsufficientCreditsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/generate-thumbnail [post]
func Handler(gen Generator, store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		key := ""
		if raw := c.GetHeader(IdempotencyKeyHeader); raw != "" && store != nil {
			key = userID + ":" + raw

			stored, err := store.Reserve(ctx, key)
			switch {
			case stderrors.Is(err, idempotency.ErrInFlight):
				errors.Conflict(c, "a request with this idempotency key is still running")
				return
			case err != nil:
				// store unavailable; run without replay protection
				log.Warn("idempotency store unavailable", "error", err)
				key = ""
			case stored != nil:
				c.Header("Idempotent-Replayed", "true")
				c.Data(http.StatusOK, "application/json; charset=utf-8", stored)
				return
			}
		}

		result, err := gen.Generate(ctx, generation.Request{
			AccountID: userID,
			Prompt:    req.FullPrompt,
			ImageURLs: req.ImageURLs,
		})
		if err != nil {
			if key != "" {
				if relErr := store.Release(context.WithoutCancel(ctx), key); relErr != nil {
					log.Warn("failed to release idempotency key", "error", relErr)
				}
			}
			respondError(c, err)
			return
		}

		body, err := json.Marshal(Response{URL: result.URL, Credits: result.Balance, TaskID: result.TaskID})
		if err != nil {
			errors.InternalError(c, "failed to encode response", err)
			return
		}

		if key != "" {
			if err := store.Complete(context.WithoutCancel(ctx), key, body); err != nil {
				log.Warn("failed to store idempotent result", "error", err)
			}
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

func respondError(c *gin.Context, err error) {
	var (
		validationErr *generation.ValidationError
		creditsErr    *ledger.InsufficientCreditsError
		failedErr     *generation.FailedError
		submissionErr *kie.SubmissionError
	)

	switch {
	case stderrors.As(err, &validationErr):
		errors.ValidationError(c, validationErr)
	case stderrors.As(err, &creditsErr):
		errors.InsufficientCredits(c, creditsErr.Required, creditsErr.Available)
	case stderrors.Is(err, ledger.ErrNotFound):
		errors.NotFound(c, "account")
	case stderrors.As(err, &failedErr):
		errors.UpstreamFailure(c, errors.CodeGenerationFailed, "image generation failed", err)
	case stderrors.As(err, &submissionErr):
		errors.UpstreamFailure(c, errors.CodeGenerationFailed, "image generation could not be started", err)
	case stderrors.Is(err, generation.ErrEmptyResult):
		errors.UpstreamFailure(c, errors.CodeGenerationFailed, "image generation returned no image", err)
	case stderrors.Is(err, generation.ErrTimedOut):
		errors.UpstreamFailure(c, errors.CodeGenerationTimedOut, "image generation timed out", err)
	case stderrors.Is(err, context.Canceled):
		logger.FromContext(c.Request.Context()).Info("client disconnected during generation")
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		errors.InternalError(c, "failed to generate thumbnail", err)
	}
}
