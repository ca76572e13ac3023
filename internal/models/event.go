package models

import "time"

// Event carries a point budget split between PointsRemain and PointsAwarded.
// Their sum is conserved by every event-reward transaction.
type Event struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Location    string    `gorm:"not null" json:"location"`
	StartTime   time.Time `gorm:"not null" json:"startTime"`
	EndTime     time.Time `gorm:"not null" json:"endTime"`
	// Capacity of nil means unlimited.
	Capacity      *int `json:"capacity"`
	PointsRemain  int  `gorm:"not null;default:0" json:"pointsRemain"`
	PointsAwarded int  `gorm:"not null;default:0" json:"pointsAwarded"`
	Published     bool `gorm:"not null;default:false" json:"published"`

	Guests     []User `gorm:"many2many:event_guests" json:"-"`
	Organizers []User `gorm:"many2many:event_organizers" json:"-"`
}

func (Event) TableName() string {
	return "events"
}

func (e *Event) IsOrganizer(userID uint) bool {
	for _, org := range e.Organizers {
		if org.ID == userID {
			return true
		}
	}
	return false
}

func (e *Event) IsGuest(utorid string) bool {
	for _, g := range e.Guests {
		if g.Utorid == utorid {
			return true
		}
	}
	return false
}

func (e *Event) Full() bool {
	return e.Capacity != nil && len(e.Guests) >= *e.Capacity
}
