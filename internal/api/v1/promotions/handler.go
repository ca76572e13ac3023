package promotions

import (
	"net/http"
	"strconv"

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

// CreatePromotion creates a promotion, manager clearance required.
func CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	promotion, err := services.CreatePromotion(services.PromotionCreate{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MinSpending: req.MinSpending,
		Rate:        req.Rate,
		Points:      req.Points,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Promotion created", promotion))
}

// ListPromotions returns a paginated promotion listing. What is visible
// depends on the caller's clearance.
func ListPromotions(c *gin.Context) {
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

	filter := services.PromotionFilter{
		Name:    c.Query("name"),
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("orderBy"),
		Order:   c.Query("order"),
	}

	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.PromotionType(typeStr)
		filter.Type = &t
	}
	if startedStr, exists := c.GetQuery("started"); exists {
		started, err := strconv.ParseBool(startedStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid started filter"))
			return
		}
		filter.Started = &started
	}
	if endedStr, exists := c.GetQuery("ended"); exists {
		ended, err := strconv.ParseBool(endedStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid ended filter"))
			return
		}
		filter.Ended = &ended
	}

	actor := middleware.CurrentUser(c)
	promotionsList, total, err := services.FindPromotions(filter, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Promotions retrieved", gin.H{
		"count":   total,
		"results": promotionsList,
		"page":    page,
		"limit":   limit,
	}))
}

// GetPromotion returns a single promotion by id.
func GetPromotion(c *gin.Context) {
	promoID, err := strconv.ParseUint(c.Param("promotionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid promotionId"))
		return
	}

	actor := middleware.CurrentUser(c)
	promotion, err := services.GetPromotionByID(uint(promoID), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Promotion retrieved", promotion))
}

// UpdatePromotion edits a promotion, manager clearance required.
func UpdatePromotion(c *gin.Context) {
	promoID, err := strconv.ParseUint(c.Param("promotionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid promotionId"))
		return
	}

	var req UpdatePromotionRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	promotion, err := services.UpdatePromotion(uint(promoID), services.PromotionUpdate{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MinSpending: req.MinSpending,
		Rate:        req.Rate,
		Points:      req.Points,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Promotion updated", promotion))
}

// DeletePromotion removes a promotion that has not started.
func DeletePromotion(c *gin.Context) {
	promoID, err := strconv.ParseUint(c.Param("promotionId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid promotionId"))
		return
	}

	if err := services.DeletePromotion(uint(promoID)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Promotion deleted", nil))
}
