package users

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

func parsePagination(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return 0, 0, false
	}
	return page, limit, true
}

// Register creates an unactivated account and returns its activation token.
func Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	result, err := services.RegisterUser(services.RegisterRequest{
		Utorid: req.Utorid,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "User registered", RegisterResponse{
		ID:         result.User.ID,
		Utorid:     result.User.Utorid,
		Name:       result.User.Name,
		Email:      result.User.Email,
		Verified:   result.User.Verified,
		ResetToken: result.ResetToken,
		ExpiresAt:  result.ExpiresAt,
	}))
}

// ListUsers returns a paginated, filtered user listing.
func ListUsers(c *gin.Context) {
	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	filter := services.UserFilter{
		Name:    c.Query("name"),
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("orderBy"),
		Order:   c.Query("order"),
	}

	if roleStr, exists := c.GetQuery("role"); exists {
		role := models.Role(roleStr)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid role filter"))
			return
		}
		filter.Role = &role
	}
	if verifiedStr, exists := c.GetQuery("verified"); exists {
		verified, err := strconv.ParseBool(verifiedStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid verified filter"))
			return
		}
		filter.Verified = &verified
	}
	if activatedStr, exists := c.GetQuery("activated"); exists {
		activated, err := strconv.ParseBool(activatedStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid activated filter"))
			return
		}
		filter.Activated = &activated
	}

	usersList, total, err := services.FindUsers(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Users retrieved", UserListResponse{
		Users: usersList,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// GetUser returns a single user by id.
func GetUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid userId"))
		return
	}

	user, err := services.FindUserByID(uint(userID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User retrieved", user))
}

// UpdateUserStatus applies manager updates: email, verified, suspicious, role.
func UpdateUserStatus(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid userId"))
		return
	}

	var req StatusUpdateRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	user, err := services.UpdateUserStatus(uint(userID), services.UserStatusUpdate{
		Email:      req.Email,
		Verified:   req.Verified,
		Suspicious: req.Suspicious,
		Role:       req.Role,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User updated", user))
}

// GetCurrentUser returns the authenticated user's profile.
func GetCurrentUser(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Profile retrieved", user))
}

// UpdateCurrentUser applies self-service profile edits.
func UpdateCurrentUser(c *gin.Context) {
	var req ProfileUpdateRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	user, err := services.UpdateCurrentUser(actor, services.ProfileUpdate{
		Name:      req.Name,
		Email:     req.Email,
		Birthday:  req.Birthday,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Profile updated", user))
}

// UpdatePassword changes the authenticated user's password.
func UpdatePassword(c *gin.Context) {
	var req PasswordUpdateRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	if err := services.UpdateCurrentUserPassword(actor, req.Old, req.Password); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Password updated", nil))
}

// CreateTransfer sends points from the authenticated user to another user.
func CreateTransfer(c *gin.Context) {
	recipientID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid userId"))
		return
	}

	var req TransferRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	view, err := services.CreateTransfer(actor, uint(recipientID), req.Amount, req.Remark)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Transfer created", view))
}

// CreateRedemption opens a pending redemption for the authenticated user.
func CreateRedemption(c *gin.Context) {
	var req RedemptionRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	view, err := services.CreateRedemption(actor, req.Amount, req.Remark)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Redemption requested", view))
}

// ListCurrentUserTransactions returns the authenticated user's ledger slice.
func ListCurrentUserTransactions(c *gin.Context) {
	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	filter := services.TransactionFilter{
		Utorid:   actor.Utorid,
		Operator: c.Query("operator"),
		Page:     page,
		Limit:    limit,
		OrderBy:  c.Query("orderBy"),
		Order:    c.Query("order"),
	}

	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}
	if relatedStr, exists := c.GetQuery("relatedId"); exists {
		relatedID, err := strconv.ParseUint(relatedStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid relatedId"))
			return
		}
		rid := uint(relatedID)
		filter.RelatedID = &rid
	}
	if amountStr, exists := c.GetQuery("amount"); exists {
		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid amount"))
			return
		}
		filter.Amount = &amount
	}

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
