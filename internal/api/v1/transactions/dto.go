package transactions

// CreateTransactionRequest covers the two cashier/manager-created kinds.
// The type discriminates which optional fields are required.
type CreateTransactionRequest struct {
	Utorid       string   `json:"utorid" validate:"required,len=8,alphanum"`
	Type         string   `json:"type" validate:"required,oneof=purchase adjustment"`
	Spent        *float64 `json:"spent,omitempty" validate:"omitempty,gt=0"`
	Amount       *int     `json:"amount,omitempty"`
	RelatedID    *uint    `json:"relatedId,omitempty" validate:"omitempty,gt=0"`
	PromotionIDs []uint   `json:"promotionIds,omitempty"`
	Remark       string   `json:"remark,omitempty"`
}

type SuspiciousRequest struct {
	Suspicious *bool `json:"suspicious" validate:"required"`
}

type ProcessedRequest struct {
	Processed *bool `json:"processed" validate:"required"`
}
