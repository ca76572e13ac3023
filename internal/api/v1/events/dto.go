package events

import "time"

type CreateEventRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	Capacity    *int      `json:"capacity,omitempty" validate:"omitempty,gt=0"`
	Points      int       `json:"points" validate:"required,gt=0"`
}

type UpdateEventRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Capacity    *int       `json:"capacity,omitempty" validate:"omitempty,gt=0"`
	Points      *int       `json:"points,omitempty" validate:"omitempty,gt=0"`
	Published   *bool      `json:"published,omitempty"`
}

type MemberRequest struct {
	Utorid string `json:"utorid" validate:"required,len=8,alphanum"`
}

// RewardRequest awards event points. Omitting utorid broadcasts the award
// to every guest.
type RewardRequest struct {
	Type   string `json:"type" validate:"required,oneof=event"`
	Utorid string `json:"utorid,omitempty" validate:"omitempty,len=8,alphanum"`
	Amount int    `json:"amount" validate:"required,gt=0"`
	Remark string `json:"remark,omitempty"`
}
