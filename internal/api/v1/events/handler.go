package events

import (
	"net/http"
	"strconv"

	"loyaltypoints-backend/internal/middleware"
	"loyaltypoints-backend/internal/services"
	"loyaltypoints-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

func respondServiceError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	c.JSON(status, utils.NewErrorResponse(status, err.Error()))
}

func eventID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid eventId"))
		return 0, false
	}
	return uint(id), true
}

// CreateEvent creates an event, manager clearance required.
func CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	event, err := services.CreateEvent(services.EventCreate{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Capacity:    req.Capacity,
		Points:      req.Points,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Event created", event))
}

// ListEvents returns a paginated event listing.
func ListEvents(c *gin.Context) {
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

	filter := services.EventFilter{
		Name:     c.Query("name"),
		Location: c.Query("location"),
		Page:     page,
		Limit:    limit,
		OrderBy:  c.Query("orderBy"),
		Order:    c.Query("order"),
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
	if publishedStr, exists := c.GetQuery("published"); exists {
		published, err := strconv.ParseBool(publishedStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid published filter"))
			return
		}
		filter.Published = &published
	}

	actor := middleware.CurrentUser(c)
	eventsList, total, err := services.FindEvents(filter, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Events retrieved", gin.H{
		"count":   total,
		"results": eventsList,
		"page":    page,
		"limit":   limit,
	}))
}

// GetEvent returns a single event by id.
func GetEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	event, err := services.GetEventByID(id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Event retrieved", event))
}

// UpdateEvent edits an event. Organizers can edit details; publishing and
// the point budget stay manager-only.
func UpdateEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	event, err := services.UpdateEvent(id, services.EventUpdate{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Capacity:    req.Capacity,
		Points:      req.Points,
		Published:   req.Published,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Event updated", event))
}

// DeleteEvent removes an unpublished event, manager clearance required.
func DeleteEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	if err := services.DeleteEvent(id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Event deleted", nil))
}

// AddOrganizer registers a user as an event organizer.
func AddOrganizer(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req MemberRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	event, err := services.AddOrganizerToEvent(id, req.Utorid)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Organizer added", event))
}

// RemoveOrganizer drops a user from the organizer list.
func RemoveOrganizer(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid userId"))
		return
	}

	if err := services.RemoveOrganizerFromEvent(id, uint(userID)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Organizer removed", nil))
}

// AddGuest puts a user on the guest list.
func AddGuest(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req MemberRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	event, guest, err := services.AddGuestToEvent(id, req.Utorid, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Guest added", gin.H{
		"id":       event.ID,
		"name":     event.Name,
		"location": event.Location,
		"guestAdded": gin.H{
			"id":     guest.ID,
			"utorid": guest.Utorid,
			"name":   guest.Name,
		},
		"numGuests": len(event.Guests),
	}))
}

// RemoveGuest drops a user from the guest list.
func RemoveGuest(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid userId"))
		return
	}

	if err := services.RemoveGuestFromEvent(id, uint(userID)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Guest removed", nil))
}

// RSVP adds the authenticated user to the guest list.
func RSVP(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	event, err := services.RSVPCurrentUser(id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "RSVP recorded", gin.H{
		"id":        event.ID,
		"name":      event.Name,
		"location":  event.Location,
		"numGuests": len(event.Guests),
	}))
}

// UnRSVP removes the authenticated user from the guest list.
func UnRSVP(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	if err := services.UnRSVPCurrentUser(id, actor); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("RSVP cancelled", nil))
}

// CreateReward awards event points to one guest or to all of them.
func CreateReward(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}

	var req RewardRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	actor := middleware.CurrentUser(c)
	views, err := services.CreateEventReward(id, services.EventRewardRequest{
		Utorid: req.Utorid,
		Amount: req.Amount,
		Remark: req.Remark,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "Event points awarded", views))
}
