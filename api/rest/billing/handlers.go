package billing

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/errors"
	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// CheckoutSessionHandler godoc
// @Summary Create a checkout session
// @Description Creates a Stripe checkout for a subscription plan or a one-time credit pack
// @Tags billing
// @Accept json
// @Produce json
// @Param request body CheckoutRequest true "Plan and return urls"
// @Success 200 {object} URLResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/billing/checkout-session [post]
func CheckoutSessionHandler(gateway Gateway, frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest

		// an unknown plan is answered after the identity check
		unknownPlan := false
		if err := c.ShouldBindJSON(&req); err != nil {
			if !onlyUnknownPlan(err) {
				errors.ValidationError(c, err)
				return
			}
			unknownPlan = true
		}

		if !auth.RequireSameUser(c, req.UserID) {
			return
		}

		if unknownPlan {
			errors.NotFound(c, "plan")
			return
		}

		origin := returnOrigin(c, frontendURL)

		successURL := req.SuccessURL
		if successURL == "" {
			successURL = origin + "/app?payment=success"
		}

		cancelURL := req.CancelURL
		if cancelURL == "" {
			cancelURL = origin + "/app?payment=cancelled"
		}

		email := req.UserEmail
		if email == "" {
			email = auth.GetUserEmail(c)
		}

		session, err := gateway.CreateCheckoutSession(c.Request.Context(), payments.CheckoutInput{
			AccountID:  req.UserID,
			Email:      email,
			PlanKey:    req.PlanKey,
			SuccessURL: successURL,
			CancelURL:  cancelURL,
		})
		if err != nil {
			respondError(c, err, "failed to create checkout session")
			return
		}

		c.JSON(http.StatusOK, URLResponse{URL: session.URL})
	}
}

// CustomerPortalHandler godoc
// @Summary Open the customer portal
// @Description Returns a Stripe billing portal url to manage the subscription
// @Tags billing
// @Accept json
// @Produce json
// @Param request body PortalRequest true "Account"
// @Success 200 {object} URLResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/billing/customer-portal [post]
func CustomerPortalHandler(gateway Gateway, frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PortalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		if !auth.RequireSameUser(c, req.UserID) {
			return
		}

		url, err := gateway.CreatePortalSession(c.Request.Context(), req.UserID, returnOrigin(c, frontendURL)+"/app")
		if err != nil {
			respondError(c, err, "failed to create portal session")
			return
		}

		c.JSON(http.StatusOK, URLResponse{URL: url})
	}
}

// SubscriptionStatusHandler godoc
// @Summary Get subscription status
// @Tags billing
// @Produce json
// @Param userId path string true "Account id"
// @Success 200 {object} SubscriptionStatusResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/billing/subscription-status/{userId} [get]
func SubscriptionStatusHandler(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if !auth.RequireSameUser(c, userID) {
			return
		}

		acc, err := accounts.GetAccount(c.Request.Context(), userID)
		if err != nil {
			if stderrors.Is(err, ledger.ErrNotFound) {
				errors.NotFound(c, "profile")
				return
			}
			errors.InternalError(c, "failed to load subscription status", err)
			return
		}

		resp := SubscriptionStatusResponse{
			Credits:    acc.Credits,
			Plan:       acc.Plan,
			PlanPeriod: acc.PlanPeriod,
		}
		if acc.StripeSubscriptionID != "" {
			resp.StripeSubscriptionID = &acc.StripeSubscriptionID
		}

		c.JSON(http.StatusOK, resp)
	}
}

func respondError(c *gin.Context, err error, message string) {
	switch {
	case stderrors.Is(err, payments.ErrUnknownPlan):
		errors.NotFound(c, "plan")
	case stderrors.Is(err, ledger.ErrNotFound):
		errors.NotFound(c, "account")
	case stderrors.Is(err, payments.ErrNoCustomer):
		errors.BadRequest(c, "no stripe customer found", nil)
	default:
		errors.UpstreamFailure(c, errors.CodeUpstreamError, message, err)
	}
}

// the browser origin wins so preview deployments return to themselves
func returnOrigin(c *gin.Context, frontendURL string) string {
	if origin := c.GetHeader("Origin"); origin != "" {
		return strings.TrimRight(origin, "/")
	}
	return strings.TrimRight(frontendURL, "/")
}
