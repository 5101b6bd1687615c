package credits

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/api/rest/pagination"
	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/errors"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// GetCreditsHandler godoc
// @Summary Get credit balance
// @Description Returns the authenticated user's credits and plan
// @Tags credits
// @Produce json
// @Success 200 {object} ledger.Balance
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/credits [get]
func GetCreditsHandler(l Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		balance, err := l.GetBalance(c.Request.Context(), userID)
		if err != nil {
			if stderrors.Is(err, ledger.ErrNotFound) {
				errors.NotFound(c, "account")
				return
			}
			errors.InternalError(c, "failed to load credits", err)
			return
		}

		c.JSON(http.StatusOK, balance)
	}
}

// SpendHandler godoc
// @Summary Spend credits
// @Description Atomically debits credits; fails without side effects when the balance is too low
// @Tags credits
// @Accept json
// @Produce json
// @Param request body SpendRequest true "Amount and reason"
// @Success 200 {object} SpendResponse
// @Failure 400 {object} errors.InsufficientCreditsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/credits/spend [post]
func SpendHandler(l Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		var req SpendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		reason := req.Reason
		if reason == "" {
			reason = "spend"
		}

		balance, err := l.Debit(c.Request.Context(), userID, req.Amount, reason)
		if err != nil {
			var creditsErr *ledger.InsufficientCreditsError

			switch {
			case stderrors.As(err, &creditsErr):
				errors.InsufficientCredits(c, creditsErr.Required, creditsErr.Available)
			case stderrors.Is(err, ledger.ErrNotFound):
				errors.NotFound(c, "account")
			case stderrors.Is(err, ledger.ErrInvalidAmount):
				errors.BadRequest(c, "amount must be positive", nil)
			default:
				errors.InternalError(c, "failed to spend credits", err)
			}
			return
		}

		c.JSON(http.StatusOK, SpendResponse{Success: true, Credits: balance})
	}
}

// ListTransactionsHandler godoc
// @Summary List credit transactions
// @Description Returns the audit trail of credit movements, newest first
// @Tags credits
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} TransactionsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/credits/transactions [get]
func ListTransactionsHandler(l Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		limit, _ := strconv.Atoi(c.Query("limit"))   //nolint:errcheck // defaults applied below
		offset, _ := strconv.Atoi(c.Query("offset")) //nolint:errcheck // defaults applied below
		params := pagination.DefaultParams(limit, offset, defaultLimit, maxLimit)

		txs, total, err := l.Transactions(c.Request.Context(), userID, params.Limit, params.Offset)
		if err != nil {
			errors.InternalError(c, "failed to list transactions", err)
			return
		}

		c.JSON(http.StatusOK, TransactionsResponse{
			Transactions: txs,
			Pagination:   pagination.NewMeta(params, total),
		})
	}
}
