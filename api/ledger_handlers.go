package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
	"github.com/gcbaptista/notes-discovery/model"
)

// OpenAccountRequest is the body of POST /accounts/:userId.
type OpenAccountRequest struct {
	OpeningBalance int `json:"opening_balance"`
}

// RedeemRequest is the body of POST /accounts/:userId/redemptions. Price is
// the amount the client was shown and must equal the item's configured price.
type RedeemRequest struct {
	ItemID string `json:"item_id"`
	Price  *int   `json:"price"`
}

// RedeemResponse reports a redemption attempt.
type RedeemResponse struct {
	UserID    string                  `json:"user_id"`
	ItemID    string                  `json:"item_id"`
	Status    model.RedeemStatus      `json:"status"`
	Balance   int                     `json:"balance"`
	Shortfall int                     `json:"shortfall,omitempty"`
	Record    *model.RedemptionRecord `json:"record,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

// userIDParam validates the :userId path segment, sending a 400 when it is invalid.
func userIDParam(c *gin.Context) (string, bool) {
	userID := c.Param("userId")
	if result := ValidateID("userId", userID); result.HasErrors() {
		SendValidationError(c, result)
		return "", false
	}
	return userID, true
}

// OpenAccountHandler opens a user's credit account with a starting balance.
// Opening an existing account returns it unchanged.
func (api *API) OpenAccountHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req OpenAccountRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	account, err := api.ledger.OpenAccount(c.Request.Context(), userID, req.OpeningBalance)
	if err != nil {
		SendErrorFor(c, "open account", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// GetBalanceHandler returns the user's current balance
func (api *API) GetBalanceHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	balance, err := api.ledger.Balance(c.Request.Context(), userID)
	if err != nil {
		SendErrorFor(c, "get balance", err)
		return
	}
	c.JSON(http.StatusOK, model.CreditAccount{UserID: userID, Balance: balance})
}

// RedeemHandler unlocks a premium item for the user.
//
//	200 unlocked or already_unlocked
//	402 insufficient_credits, with the shortfall
//	400 invalid parameters or a price that does not match the item
//	404 unknown item
//	503 account busy (retryable) or corpus unavailable
func (api *API) RedeemHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req RedeemRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	result := ValidateID("item_id", req.ItemID)
	if req.Price == nil {
		result.AddError("price", "Price is required")
	}
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	redeemed, err := api.ledger.Redeem(c.Request.Context(), userID, req.ItemID, *req.Price)
	if err != nil && !errors.Is(err, internalErrors.ErrInsufficientCredits) {
		SendErrorFor(c, "redeem", err)
		return
	}

	response := RedeemResponse{
		UserID:    userID,
		ItemID:    req.ItemID,
		Status:    redeemed.Status,
		Balance:   redeemed.Balance,
		Shortfall: redeemed.Shortfall,
		Record:    redeemed.Record,
	}
	if err != nil {
		response.Message = err.Error()
		c.JSON(http.StatusPaymentRequired, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListRedemptionsHandler lists the items the user has unlocked, oldest first
func (api *API) ListRedemptionsHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	records, err := api.ledger.Redemptions(c.Request.Context(), userID)
	if err != nil {
		SendErrorFor(c, "list redemptions", err)
		return
	}
	if records == nil {
		records = []model.RedemptionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"redemptions": records,
		"total":       len(records),
	})
}
