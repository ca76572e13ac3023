package transactions

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loyaltypoints-backend/internal/middleware"
	"loyaltypoints-backend/internal/models"
	"loyaltypoints-backend/internal/services"
	"loyaltypoints-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

func respondServiceError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	c.JSON(status, utils.NewErrorResponse(status, err.Error()))
}

// CreateTransaction records a purchase or an adjustment depending on the
// request type.
func CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)

	switch req.Type {
	case "purchase":
		if req.Spent == nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "spent is required for a purchase"))
			return
		}
		view, err := services.CreatePurchase(services.PurchaseRequest{
			Utorid:       req.Utorid,
			Spent:        *req.Spent,
			PromotionIDs: req.PromotionIDs,
			Remark:       req.Remark,
		}, actor)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Purchase created", view))

	case "adjustment":
		if req.Amount == nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "amount is required for an adjustment"))
			return
		}
		if req.RelatedID == nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "relatedId is required for an adjustment"))
			return
		}
		view, err := services.CreateAdjustment(services.AdjustmentRequest{
			Utorid:       req.Utorid,
			Amount:       *req.Amount,
			RelatedID:    *req.RelatedID,
			PromotionIDs: req.PromotionIDs,
			Remark:       req.Remark,
		}, actor)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Adjustment created", view))
	}
}

func buildFilter(c *gin.Context) (services.TransactionFilter, bool) {
	filter := services.TransactionFilter{
		Utorid:    c.Query("name"),
		CreatedBy: c.Query("createdBy"),
		Operator:  c.Query("operator"),
		OrderBy:   c.Query("orderBy"),
		Order:     c.Query("order"),
	}

	if suspiciousStr, exists := c.GetQuery("suspicious"); exists {
		suspicious, err := strconv.ParseBool(suspiciousStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid suspicious filter"))
			return filter, false
		}
		filter.Suspicious = &suspicious
	}
	if promoStr, exists := c.GetQuery("promotionId"); exists {
		promoID, err := strconv.ParseUint(promoStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid promotionId"))
			return filter, false
		}
		pid := uint(promoID)
		filter.PromotionID = &pid
	}
	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}
	if relatedStr, exists := c.GetQuery("relatedId"); exists {
		relatedID, err := strconv.ParseUint(relatedStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid relatedId"))
			return filter, false
		}
		rid := uint(relatedID)
		filter.RelatedID = &rid
	}
	if amountStr, exists := c.GetQuery("amount"); exists {
		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid amount"))
			return filter, false
		}
		filter.Amount = &amount
	}

	return filter, true
}

// ListTransactions returns a paginated, filtered slice of the ledger.
func ListTransactions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	filter, ok := buildFilter(c)
	if !ok {
		return
	}
	filter.Page = page
	filter.Limit = limit

	transactions, total, err := services.FindTransactions(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved", gin.H{
		"count":   total,
		"results": transactions,
		"page":    page,
		"limit":   limit,
	}))
}

// GetTransaction returns a single ledger entry.
func GetTransaction(c *gin.Context) {
	transactionID, err := strconv.ParseUint(c.Param("transactionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid transactionId"))
		return
	}

	view, err := services.GetTransactionByID(uint(transactionID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transaction retrieved", view))
}

// SetSuspicious flips a transaction's suspicious flag, correcting the
// owner's balance.
func SetSuspicious(c *gin.Context) {
	transactionID, err := strconv.ParseUint(c.Param("transactionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid transactionId"))
		return
	}

	var req SuspiciousRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	view, err := services.SetTransactionSuspicious(uint(transactionID), *req.Suspicious)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transaction updated", view))
}

// ProcessRedemption completes a pending redemption.
func ProcessRedemption(c *gin.Context) {
	transactionID, err := strconv.ParseUint(c.Param("transactionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid transactionId"))
		return
	}

	var req ProcessedRequest
	if !utils.BindStrict(c, &req) {
		return
	}
	if !*req.Processed {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "processed must be true"))
		return
	}

	actor := middleware.CurrentUser(c)
	view, err := services.ProcessRedemption(uint(transactionID), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Redemption processed", view))
}

// ExportTransactions renders the filtered ledger as CSV.
func ExportTransactions(c *gin.Context) {
	filter, ok := buildFilter(c)
	if !ok {
		return
	}
	filter.Page = 1
	filter.Limit = 10000 // hard limit for safety

	transactions, _, err := services.FindTransactions(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	csvContent, err := services.GenerateTransactionCSV(transactions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to generate CSV"))
		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", csvContent)
}
