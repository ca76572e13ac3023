package models

import "time"

type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeRedemption TransactionType = "redemption"
	TransactionTypeEvent      TransactionType = "event"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePurchase, TransactionTypeAdjustment, TransactionTypeTransfer,
		TransactionTypeRedemption, TransactionTypeEvent:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Amount sign encodes direction:
// positive credits the owner, negative debits. Once created only Suspicious
// and the Processed/Redeemed pair may change, each exactly once per transition.
type Transaction struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CreatedAt time.Time       `gorm:"precision:3" json:"created_at"`
	Utorid    string          `gorm:"index;size:8;not null" json:"utorid"`
	Amount    int             `gorm:"not null" json:"amount"`
	Type      TransactionType `gorm:"type:varchar(20);index;not null" json:"type"`
	// Spent is the monetary amount of a purchase, unset for other kinds.
	Spent *float64 `json:"spent,omitempty"`
	// RelatedID semantics vary by kind: the corrected transaction for
	// adjustments, the counterparty user for transfers, the processing
	// cashier for redemptions, the event for event rewards.
	RelatedID  *uint  `gorm:"index" json:"relatedId,omitempty"`
	Redeemed   *int   `json:"redeemed,omitempty"`
	Processed  *bool  `json:"processed,omitempty"`
	Suspicious bool   `gorm:"not null;default:false" json:"suspicious"`
	Remark     string `gorm:"type:text" json:"remark"`
	CreatedBy  string `gorm:"size:8;not null" json:"createdBy"`

	Promotions []Promotion `gorm:"many2many:transaction_promotions" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// PromotionIDs returns the ids of the promotions applied to this transaction.
func (t *Transaction) PromotionIDs() []uint {
	ids := make([]uint, 0, len(t.Promotions))
	for _, p := range t.Promotions {
		ids = append(ids, p.ID)
	}
	return ids
}
