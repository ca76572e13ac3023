package services

import (
	"testing"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func seedEvent(points int, published bool) models.Event {
	now := time.Now()
	event := models.Event{
		Name:         "Seeded event",
		Description:  "Seeded for tests",
		Location:     "BA 2250",
		StartTime:    now.Add(time.Hour),
		EndTime:      now.Add(3 * time.Hour),
		PointsRemain: points,
		Published:    published,
	}
	database.DB.Create(&event)
	return event
}

func TestCreateEventValidation(t *testing.T) {
	setupTestDB()

	now := time.Now()

	_, err := CreateEvent(EventCreate{
		Name: "", Description: "d", Location: "l",
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Points: 100,
	})
	assert.Equal(t, KindBadPayload, KindOf(err))

	_, err = CreateEvent(EventCreate{
		Name: "Hack night", Description: "d", Location: "l",
		StartTime: now.Add(-time.Hour), EndTime: now.Add(2 * time.Hour), Points: 100,
	})
	assert.Equal(t, KindBadPayload, KindOf(err))

	_, err = CreateEvent(EventCreate{
		Name: "Hack night", Description: "d", Location: "l",
		StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Points: 0,
	})
	assert.Equal(t, KindBadPayload, KindOf(err))

	event, err := CreateEvent(EventCreate{
		Name: "Hack night", Description: "Overnight hackathon", Location: "BA 2250",
		StartTime: now.Add(time.Hour), EndTime: now.Add(12 * time.Hour), Points: 500,
	})
	assert.NoError(t, err)
	assert.Equal(t, 500, event.PointsRemain)
	assert.Equal(t, 0, event.PointsAwarded)
	assert.False(t, event.Published)
}

func TestGetEventVisibility(t *testing.T) {
	setupTestDB()

	hidden := seedEvent(100, false)
	regular := seedUser("regular1", models.RoleRegular, 0)
	manager := seedUser("manager1", models.RoleManager, 0)
	organizer := seedUser("organize", models.RoleRegular, 0)
	database.DB.Model(&hidden).Association("Organizers").Append(&organizer)

	_, err := GetEventByID(hidden.ID, regular)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = GetEventByID(hidden.ID, manager)
	assert.NoError(t, err)

	_, err = GetEventByID(hidden.ID, organizer)
	assert.NoError(t, err)
}

func TestFindEventsVisibility(t *testing.T) {
	setupTestDB()

	seedEvent(100, true)
	seedEvent(100, false)

	regular := seedUser("regular1", models.RoleRegular, 0)
	manager := seedUser("manager1", models.RoleManager, 0)

	visible, total, err := FindEvents(EventFilter{Page: 1, Limit: 10}, regular)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.True(t, visible[0].Published)

	_, total, err = FindEvents(EventFilter{Page: 1, Limit: 10}, manager)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, total)

	published := false
	unpublished, total, err := FindEvents(EventFilter{Published: &published, Page: 1, Limit: 10}, manager)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.False(t, unpublished[0].Published)
}

func TestUpdateEventBudgetAndPublish(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, false)
	database.DB.Model(&event).Update("points_awarded", 40)

	manager := seedUser("manager1", models.RoleManager, 0)
	organizer := seedUser("organize", models.RoleRegular, 0)
	database.DB.Model(&event).Association("Organizers").Append(&organizer)

	// The budget can never drop below what was already awarded.
	tooLow := 30
	_, err := UpdateEvent(event.ID, EventUpdate{Points: &tooLow}, manager)
	assert.Equal(t, KindBadPayload, KindOf(err))

	raised := 200
	_, err = UpdateEvent(event.ID, EventUpdate{Points: &raised}, manager)
	assert.NoError(t, err)

	var stored models.Event
	database.DB.First(&stored, event.ID)
	assert.Equal(t, 160, stored.PointsRemain)

	// Organizers cannot touch the budget or publish.
	_, err = UpdateEvent(event.ID, EventUpdate{Points: &raised}, organizer)
	assert.Equal(t, KindForbidden, KindOf(err))

	publish := true
	_, err = UpdateEvent(event.ID, EventUpdate{Published: &publish}, organizer)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = UpdateEvent(event.ID, EventUpdate{Published: &publish}, manager)
	assert.NoError(t, err)

	// Publishing is one-way.
	unpublish := false
	_, err = UpdateEvent(event.ID, EventUpdate{Published: &unpublish}, manager)
	assert.Equal(t, KindBadPayload, KindOf(err))
}

func TestDeleteEvent(t *testing.T) {
	setupTestDB()

	draft := seedEvent(100, false)
	assert.NoError(t, DeleteEvent(draft.ID))

	published := seedEvent(100, true)
	err := DeleteEvent(published.ID)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestGuestListManagement(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, true)
	capacity := 1
	database.DB.Model(&event).Update("capacity", capacity)

	manager := seedUser("manager1", models.RoleManager, 0)
	guest := seedUser("guest111", models.RoleRegular, 0)
	late := seedUser("guest222", models.RoleRegular, 0)

	updated, added, err := AddGuestToEvent(event.ID, guest.Utorid, manager)
	assert.NoError(t, err)
	assert.Equal(t, guest.ID, added.ID)
	assert.Len(t, updated.Guests, 1)

	// Adding the same guest twice conflicts, even though the event is now
	// at capacity.
	_, _, err = AddGuestToEvent(event.ID, guest.Utorid, manager)
	assert.Equal(t, KindConflict, KindOf(err))

	// Capacity is enforced.
	_, _, err = AddGuestToEvent(event.ID, late.Utorid, manager)
	assert.Equal(t, KindBadPayload, KindOf(err))

	assert.NoError(t, RemoveGuestFromEvent(event.ID, guest.ID))
	assert.Equal(t, KindNotFound, KindOf(RemoveGuestFromEvent(event.ID, guest.ID)))
}

func TestOrganizerGuestExclusivity(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, true)
	manager := seedUser("manager1", models.RoleManager, 0)
	user := seedUser("member11", models.RoleRegular, 0)

	_, _, err := AddGuestToEvent(event.ID, user.Utorid, manager)
	assert.NoError(t, err)

	_, err = AddOrganizerToEvent(event.ID, user.Utorid)
	assert.Equal(t, KindBadPayload, KindOf(err))

	assert.NoError(t, RemoveGuestFromEvent(event.ID, user.ID))

	_, err = AddOrganizerToEvent(event.ID, user.Utorid)
	assert.NoError(t, err)

	_, _, err = AddGuestToEvent(event.ID, user.Utorid, manager)
	assert.Equal(t, KindBadPayload, KindOf(err))
}

func TestRSVP(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, true)
	hidden := seedEvent(100, false)
	guest := seedUser("guest111", models.RoleRegular, 0)

	_, err := RSVPCurrentUser(hidden.ID, guest)
	assert.Equal(t, KindNotFound, KindOf(err))

	updated, err := RSVPCurrentUser(event.ID, guest)
	assert.NoError(t, err)
	assert.Len(t, updated.Guests, 1)

	_, err = RSVPCurrentUser(event.ID, guest)
	assert.Equal(t, KindConflict, KindOf(err))

	// The duplicate RSVP left the stored guest list untouched.
	fetched, err := getEventWithRelations(database.DB, event.ID)
	assert.NoError(t, err)
	assert.Len(t, fetched.Guests, 1)

	assert.NoError(t, UnRSVPCurrentUser(event.ID, guest))
	assert.Equal(t, KindNotFound, KindOf(UnRSVPCurrentUser(event.ID, guest)))
}

func TestCreateEventRewardTargeted(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, true)
	manager := seedUser("manager1", models.RoleManager, 0)
	guest := seedUser("guest111", models.RoleRegular, 0)
	outsider := seedUser("outsider", models.RoleRegular, 0)
	database.DB.Model(&event).Association("Guests").Append(&guest)

	// Target must be on the guest list.
	_, err := CreateEventReward(event.ID, EventRewardRequest{
		Utorid: outsider.Utorid, Amount: 10,
	}, manager)
	assert.Equal(t, KindBadPayload, KindOf(err))

	views, err := CreateEventReward(event.ID, EventRewardRequest{
		Utorid: guest.Utorid, Amount: 10, Remark: "showed up",
	}, manager)
	assert.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Equal(t, guest.Utorid, views[0].Recipient)
	assert.Equal(t, 10, views[0].Awarded)
	assert.Equal(t, 10, userBalance(t, guest.Utorid))

	var stored models.Event
	database.DB.First(&stored, event.ID)
	assert.Equal(t, 90, stored.PointsRemain)
	assert.Equal(t, 10, stored.PointsAwarded)
}

func TestCreateEventRewardBroadcast(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, true)
	organizer := seedUser("organize", models.RoleRegular, 0)
	database.DB.Model(&event).Association("Organizers").Append(&organizer)

	guests := []models.User{
		seedUser("guest111", models.RoleRegular, 0),
		seedUser("guest222", models.RoleRegular, 0),
		seedUser("guest333", models.RoleRegular, 0),
	}
	for i := range guests {
		database.DB.Model(&event).Association("Guests").Append(&guests[i])
	}

	views, err := CreateEventReward(event.ID, EventRewardRequest{Amount: 20}, organizer)
	assert.NoError(t, err)
	assert.Len(t, views, 3)

	for _, guest := range guests {
		assert.Equal(t, 20, userBalance(t, guest.Utorid))
	}

	// Budget conservation: remain + awarded stays at the original total.
	var stored models.Event
	database.DB.First(&stored, event.ID)
	assert.Equal(t, 40, stored.PointsRemain)
	assert.Equal(t, 60, stored.PointsAwarded)
}

func TestCreateEventRewardInsufficientBudget(t *testing.T) {
	setupTestDB()

	event := seedEvent(30, true)
	manager := seedUser("manager1", models.RoleManager, 0)
	guests := []models.User{
		seedUser("guest111", models.RoleRegular, 0),
		seedUser("guest222", models.RoleRegular, 0),
	}
	for i := range guests {
		database.DB.Model(&event).Association("Guests").Append(&guests[i])
	}

	// 2 guests x 20 points exceeds the 30 remaining, so nobody is rewarded.
	_, err := CreateEventReward(event.ID, EventRewardRequest{Amount: 20}, manager)
	assert.Equal(t, KindBadPayload, KindOf(err))

	for _, guest := range guests {
		assert.Equal(t, 0, userBalance(t, guest.Utorid))
	}

	var stored models.Event
	database.DB.First(&stored, event.ID)
	assert.Equal(t, 30, stored.PointsRemain)
	assert.Equal(t, 0, stored.PointsAwarded)
}

func TestCreateEventRewardUnauthorized(t *testing.T) {
	setupTestDB()

	event := seedEvent(100, true)
	regular := seedUser("regular1", models.RoleRegular, 0)
	guest := seedUser("guest111", models.RoleRegular, 0)
	database.DB.Model(&event).Association("Guests").Append(&guest)

	_, err := CreateEventReward(event.ID, EventRewardRequest{Amount: 10}, regular)
	assert.Equal(t, KindForbidden, KindOf(err))
}
