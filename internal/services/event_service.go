package services

import (
	"errors"
	"strings"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventCreate struct {
	Name        string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	Capacity    *int
	Points      int
}

type EventUpdate struct {
	Name        *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	Capacity    *int
	Points      *int
	Published   *bool
}

// EventFilter defines criteria for the event listing.
type EventFilter struct {
	Name      string
	Location  string
	Started   *bool
	Ended     *bool
	Published *bool
	Page      int
	Limit     int
	OrderBy   string
	Order     string
}

type EventRewardRequest struct {
	// Utorid targets a single guest; empty means broadcast to all guests.
	Utorid string
	Amount int
	Remark string
}

type EventRewardView struct {
	ID        uint                   `json:"id"`
	Recipient string                 `json:"recipient"`
	Awarded   int                    `json:"awarded"`
	Type      models.TransactionType `json:"type"`
	RelatedID uint                   `json:"relatedId"`
	Remark    string                 `json:"remark"`
	CreatedBy string                 `json:"createdBy"`
}

// CreateEvent creates an event with its full point budget unawarded.
func CreateEvent(req EventCreate) (*models.Event, error) {
	if req.Name == "" || req.Description == "" || req.Location == "" {
		return nil, badPayload("name, description and location are required")
	}

	now := time.Now()
	if req.StartTime.Before(now) {
		return nil, badPayload("startTime cannot be in the past")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, badPayload("endTime must be after startTime")
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return nil, badPayload("capacity must be a positive integer")
	}
	if req.Points <= 0 {
		return nil, badPayload("points must be a positive integer")
	}

	event := models.Event{
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Capacity:     req.Capacity,
		PointsRemain: req.Points,
	}

	if err := database.DB.Create(&event).Error; err != nil {
		return nil, internal(err)
	}

	return &event, nil
}

func getEventWithRelations(db *gorm.DB, eventID uint) (*models.Event, error) {
	var event models.Event
	err := db.Preload("Guests").Preload("Organizers").First(&event, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("event not found")
		}
		return nil, internal(err)
	}
	return &event, nil
}

// GetEventByID fetches an event. Unpublished events are visible only to
// managers and that event's organizers.
func GetEventByID(eventID uint, actor models.User) (*models.Event, error) {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return nil, err
	}

	if !event.Published && !actor.Role.AtLeast(models.RoleManager) && !event.IsOrganizer(actor.ID) {
		return nil, notFound("event not found")
	}

	return event, nil
}

var eventSortable = map[string]string{
	"name":      "name",
	"location":  "location",
	"startTime": "start_time",
	"endTime":   "end_time",
	"capacity":  "capacity",
}

// FindEvents retrieves a paginated event listing. Below manager clearance
// only published events are shown. All filtering happens in the store
// query, consistent with the other listings.
func FindEvents(filter EventFilter, actor models.User) ([]models.Event, int64, error) {
	var events []models.Event
	var total int64

	now := time.Now()
	query := database.DB.Model(&models.Event{})

	if !actor.Role.AtLeast(models.RoleManager) {
		query = query.Where("published = ?", true)
	} else if filter.Published != nil {
		query = query.Where("published = ?", *filter.Published)
	}

	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}

	if filter.Started != nil && filter.Ended != nil {
		return nil, 0, badPayload("started and ended cannot both be specified")
	}
	if filter.Started != nil {
		if *filter.Started {
			query = query.Where("start_time <= ?", now)
		} else {
			query = query.Where("start_time > ?", now)
		}
	}
	if filter.Ended != nil {
		if *filter.Ended {
			query = query.Where("end_time <= ?", now)
		} else {
			query = query.Where("end_time > ?", now)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internal(err)
	}

	if filter.OrderBy != "" {
		column, ok := eventSortable[filter.OrderBy]
		if !ok {
			return nil, 0, badPayload("invalid orderBy field: %s", filter.OrderBy)
		}
		direction := strings.ToLower(filter.Order)
		if direction != "asc" && direction != "desc" {
			return nil, 0, badPayload("invalid order, must be asc or desc")
		}
		query = query.Order(column + " " + direction)
	} else {
		query = query.Order("start_time asc")
	}

	offset := (filter.Page - 1) * filter.Limit
	err := query.Preload("Guests").Preload("Organizers").
		Limit(filter.Limit).Offset(offset).Find(&events).Error
	if err != nil {
		return nil, 0, internal(err)
	}

	return events, total, nil
}

// UpdateEvent edits an event. Publishing is one-way, the point budget can
// never drop below what has already been awarded, and capacity cannot be
// reduced below the current guest count.
func UpdateEvent(eventID uint, req EventUpdate, actor models.User) (*models.Event, error) {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return nil, err
	}

	if !actor.Role.AtLeast(models.RoleManager) && !event.IsOrganizer(actor.ID) {
		return nil, forbidden("not authorized to update this event")
	}

	now := time.Now()
	updates := map[string]interface{}{}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, badPayload("invalid name, must be a non-empty string")
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		if *req.Description == "" {
			return nil, badPayload("invalid description, must be a non-empty string")
		}
		updates["description"] = *req.Description
	}
	if req.Location != nil {
		if *req.Location == "" {
			return nil, badPayload("invalid location, must be a non-empty string")
		}
		updates["location"] = *req.Location
	}

	startTime := event.StartTime
	if req.StartTime != nil {
		if req.StartTime.Before(now) {
			return nil, badPayload("startTime cannot be in the past")
		}
		startTime = *req.StartTime
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		if !req.EndTime.After(startTime) {
			return nil, badPayload("endTime must be after startTime")
		}
		updates["end_time"] = *req.EndTime
	}

	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, badPayload("capacity must be a positive integer")
		}
		if *req.Capacity < len(event.Guests) {
			return nil, badPayload("capacity cannot be lower than the current number of guests")
		}
		updates["capacity"] = *req.Capacity
	}

	if req.Points != nil {
		if !actor.Role.AtLeast(models.RoleManager) {
			return nil, forbidden("only managers can change the point budget")
		}
		remain := *req.Points - event.PointsAwarded
		if remain < 0 {
			return nil, badPayload("points cannot be lower than what has already been awarded")
		}
		updates["points_remain"] = remain
	}

	if req.Published != nil {
		if !actor.Role.AtLeast(models.RoleManager) {
			return nil, forbidden("only managers can publish an event")
		}
		if !*req.Published {
			return nil, badPayload("published can only be set to true")
		}
		updates["published"] = true
	}

	if len(updates) == 0 {
		return nil, badPayload("no valid fields to update")
	}

	if err := database.DB.Model(event).Updates(updates).Error; err != nil {
		return nil, internal(err)
	}

	return event, nil
}

// DeleteEvent removes an event that has not been published.
func DeleteEvent(eventID uint) error {
	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("event not found")
		}
		return internal(err)
	}

	if event.Published {
		return forbidden("cannot delete a published event")
	}

	if err := database.DB.Select("Guests", "Organizers").Delete(&event).Error; err != nil {
		return internal(err)
	}

	return nil
}

// AddOrganizerToEvent registers a user as an organizer. Organizers cannot
// also be on the guest list.
func AddOrganizerToEvent(eventID uint, utorid string) (*models.Event, error) {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return nil, err
	}

	if event.EndTime.Before(time.Now()) {
		return nil, badPayload("event has already ended")
	}

	user, err := FindUserByUtorid(utorid)
	if err != nil {
		return nil, err
	}

	if event.IsGuest(user.Utorid) {
		return nil, badPayload("user is a guest of this event, remove them as a guest first")
	}
	if event.IsOrganizer(user.ID) {
		return nil, conflict("user is already an organizer of this event")
	}

	if err := database.DB.Model(event).Association("Organizers").Append(&user); err != nil {
		return nil, internal(err)
	}

	return getEventWithRelations(database.DB, eventID)
}

func RemoveOrganizerFromEvent(eventID, userID uint) error {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return err
	}

	if !event.IsOrganizer(userID) {
		return notFound("user is not an organizer of this event")
	}

	if err := database.DB.Model(event).Association("Organizers").Delete(&models.User{ID: userID}); err != nil {
		return internal(err)
	}

	return nil
}

// AddGuestToEvent puts a user on the guest list, respecting capacity and
// the visibility rules for unpublished events.
func AddGuestToEvent(eventID uint, utorid string, actor models.User) (*models.Event, *models.User, error) {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return nil, nil, err
	}

	if !event.Published && !actor.Role.AtLeast(models.RoleManager) && !event.IsOrganizer(actor.ID) {
		return nil, nil, notFound("event not found")
	}
	if event.EndTime.Before(time.Now()) {
		return nil, nil, badPayload("event has already ended")
	}

	user, err := FindUserByUtorid(utorid)
	if err != nil {
		return nil, nil, err
	}

	// Membership checks come before the capacity check so a duplicate add
	// reports the duplicate, not a full event.
	if event.IsOrganizer(user.ID) {
		return nil, nil, badPayload("user is an organizer of this event, remove them as an organizer first")
	}
	if event.IsGuest(user.Utorid) {
		return nil, nil, conflict("user is already a guest of this event")
	}
	if event.Full() {
		return nil, nil, badPayload("event is full")
	}

	// Append also grows event.Guests in memory.
	if err := database.DB.Model(event).Association("Guests").Append(&user); err != nil {
		return nil, nil, internal(err)
	}

	return event, &user, nil
}

func RemoveGuestFromEvent(eventID, userID uint) error {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return err
	}

	isGuest := false
	for _, g := range event.Guests {
		if g.ID == userID {
			isGuest = true
			break
		}
	}
	if !isGuest {
		return notFound("user is not a guest of this event")
	}

	if err := database.DB.Model(event).Association("Guests").Delete(&models.User{ID: userID}); err != nil {
		return internal(err)
	}

	return nil
}

// RSVPCurrentUser adds the calling user to a published event's guest list.
func RSVPCurrentUser(eventID uint, actor models.User) (*models.Event, error) {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return nil, err
	}

	if !event.Published {
		return nil, notFound("event not found")
	}
	if event.EndTime.Before(time.Now()) {
		return nil, forbidden("event has already ended")
	}
	if event.IsGuest(actor.Utorid) {
		return nil, conflict("already on the guest list")
	}
	if event.IsOrganizer(actor.ID) {
		return nil, badPayload("organizers cannot RSVP to their own event")
	}
	if event.Full() {
		return nil, forbidden("event is full")
	}

	// Append also grows event.Guests in memory.
	if err := database.DB.Model(event).Association("Guests").Append(&actor); err != nil {
		return nil, internal(err)
	}

	return event, nil
}

func UnRSVPCurrentUser(eventID uint, actor models.User) error {
	event, err := getEventWithRelations(database.DB, eventID)
	if err != nil {
		return err
	}

	if event.EndTime.Before(time.Now()) {
		return forbidden("event has already ended")
	}
	if !event.IsGuest(actor.Utorid) {
		return notFound("not on the guest list")
	}

	if err := database.DB.Model(event).Association("Guests").Delete(&actor); err != nil {
		return internal(err)
	}

	return nil
}

// CreateEventReward hands out event points, either to a single guest or
// to every guest. The whole operation is one store transaction, so a
// broadcast either rewards everyone or no one, and
// pointsRemain + pointsAwarded is conserved.
func CreateEventReward(eventID uint, req EventRewardRequest, actor models.User) ([]EventRewardView, error) {
	if req.Amount <= 0 {
		return nil, badPayload("invalid amount, must be a positive integer")
	}

	var views []EventRewardView
	var recipientIDs []uint

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Guests").Preload("Organizers").First(&event, eventID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("event not found")
			}
			return err
		}

		if !actor.Role.AtLeast(models.RoleManager) && !event.IsOrganizer(actor.ID) {
			return forbidden("not authorized to award event points")
		}

		recipients := event.Guests
		if req.Utorid != "" {
			if !event.IsGuest(req.Utorid) {
				return badPayload("%s was not found on the event's guest list", req.Utorid)
			}
			for _, g := range event.Guests {
				if g.Utorid == req.Utorid {
					recipients = []models.User{g}
					break
				}
			}
		}

		needed := len(recipients) * req.Amount
		if event.PointsRemain < needed {
			return badPayload("event does not have sufficient points remaining")
		}

		eventRef := event.ID
		for _, guest := range recipients {
			reward := models.Transaction{
				Utorid:    guest.Utorid,
				Amount:    req.Amount,
				Type:      models.TransactionTypeEvent,
				RelatedID: &eventRef,
				Remark:    req.Remark,
				CreatedBy: actor.Utorid,
			}
			if err := tx.Create(&reward).Error; err != nil {
				return err
			}

			// Conservation: remain decreases exactly as awarded increases.
			err := tx.Model(&models.Event{}).Where("id = ?", event.ID).
				Updates(map[string]interface{}{
					"points_remain":  gorm.Expr("points_remain - ?", req.Amount),
					"points_awarded": gorm.Expr("points_awarded + ?", req.Amount),
				}).Error
			if err != nil {
				return err
			}

			if err := adjustPoints(tx, guest.Utorid, req.Amount); err != nil {
				return err
			}

			recipientIDs = append(recipientIDs, guest.ID)
			views = append(views, EventRewardView{
				ID:        reward.ID,
				Recipient: reward.Utorid,
				Awarded:   reward.Amount,
				Type:      reward.Type,
				RelatedID: eventRef,
				Remark:    reward.Remark,
				CreatedBy: reward.CreatedBy,
			})
		}

		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	for _, id := range recipientIDs {
		invalidateUserCache(id)
	}

	return views, nil
}
