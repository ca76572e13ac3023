package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRequest struct {
	Utorid       string
	Spent        float64
	PromotionIDs []uint
	Remark       string
}

type AdjustmentRequest struct {
	Utorid       string
	Amount       int
	RelatedID    uint
	PromotionIDs []uint
	Remark       string
}

type PurchaseView struct {
	ID           uint                   `json:"id"`
	Utorid       string                 `json:"utorid"`
	Type         models.TransactionType `json:"type"`
	Spent        float64                `json:"spent"`
	Earned       int                    `json:"earned"`
	Remark       string                 `json:"remark"`
	PromotionIDs []uint                 `json:"promotionIds"`
	CreatedBy    string                 `json:"createdBy"`
}

type AdjustmentView struct {
	ID           uint                   `json:"id"`
	Utorid       string                 `json:"utorid"`
	Amount       int                    `json:"amount"`
	Type         models.TransactionType `json:"type"`
	RelatedID    uint                   `json:"relatedId"`
	Remark       string                 `json:"remark"`
	PromotionIDs []uint                 `json:"promotionIds"`
	CreatedBy    string                 `json:"createdBy"`
}

type TransferView struct {
	ID        uint                   `json:"id"`
	Sender    string                 `json:"sender"`
	Recipient string                 `json:"recipient"`
	Type      models.TransactionType `json:"type"`
	Sent      int                    `json:"sent"`
	Remark    string                 `json:"remark"`
	CreatedBy string                 `json:"createdBy"`
}

type RedemptionView struct {
	ID          uint                   `json:"id"`
	Utorid      string                 `json:"utorid"`
	Type        models.TransactionType `json:"type"`
	ProcessedBy *string                `json:"processedBy"`
	Amount      int                    `json:"amount"`
	Remark      string                 `json:"remark"`
	CreatedBy   string                 `json:"createdBy"`
}

type ProcessedRedemptionView struct {
	ID          uint                   `json:"id"`
	Utorid      string                 `json:"utorid"`
	Type        models.TransactionType `json:"type"`
	ProcessedBy string                 `json:"processedBy"`
	Redeemed    int                    `json:"redeemed"`
	Remark      string                 `json:"remark"`
	CreatedBy   string                 `json:"createdBy"`
}

// TransactionView is the generic read shape for listings and lookups.
type TransactionView struct {
	ID           uint                   `json:"id"`
	Utorid       string                 `json:"utorid"`
	Amount       int                    `json:"amount"`
	Type         models.TransactionType `json:"type"`
	Spent        *float64               `json:"spent,omitempty"`
	RelatedID    *uint                  `json:"relatedId,omitempty"`
	PromotionIDs []uint                 `json:"promotionIds"`
	Suspicious   bool                   `json:"suspicious"`
	Redeemed     *int                   `json:"redeemed,omitempty"`
	Processed    *bool                  `json:"processed,omitempty"`
	Remark       string                 `json:"remark"`
	CreatedBy    string                 `json:"createdBy"`
	CreatedAt    time.Time              `json:"createdAt"`
}

func newTransactionView(t models.Transaction) TransactionView {
	return TransactionView{
		ID:           t.ID,
		Utorid:       t.Utorid,
		Amount:       t.Amount,
		Type:         t.Type,
		Spent:        t.Spent,
		RelatedID:    t.RelatedID,
		PromotionIDs: t.PromotionIDs(),
		Suspicious:   t.Suspicious,
		Redeemed:     t.Redeemed,
		Processed:    t.Processed,
		Remark:       t.Remark,
		CreatedBy:    t.CreatedBy,
		CreatedAt:    t.CreatedAt,
	}
}

// serviceErr passes typed service errors through and wraps everything
// else as internal.
func serviceErr(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return internal(err)
}

// adjustPoints applies a balance delta as a single SQL increment so
// concurrent transactions on the same user never lose updates.
func adjustPoints(tx *gorm.DB, utorid string, delta int) error {
	return tx.Model(&models.User{}).Where("utorid = ?", utorid).
		UpdateColumn("points", gorm.Expr("points + ?", delta)).Error
}

func lockUserByUtorid(tx *gorm.DB, utorid string) (models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("utorid = ?", utorid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, notFound("user not found")
		}
		return user, internal(err)
	}
	return user, nil
}

func lockUserByID(tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, notFound("user not found")
		}
		return user, internal(err)
	}
	return user, nil
}

// CreatePurchase records a purchase: base accrual of one point per $0.25
// plus promotion bonuses. A purchase created by a suspicious cashier is
// born suspicious and does not touch the balance until a manager clears it.
func CreatePurchase(req PurchaseRequest, actor models.User) (*PurchaseView, error) {
	if req.Spent <= 0 {
		return nil, badPayload("invalid spent, must be a positive number")
	}

	var view *PurchaseView
	var ownerID uint

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := lockUserByUtorid(tx, req.Utorid)
		if err != nil {
			return err
		}
		ownerID = owner.ID

		if err := validatePromotionIDs(tx, req.PromotionIDs, owner); err != nil {
			return err
		}

		amount, applied, err := applyPromotions(tx, req.Spent, req.PromotionIDs, owner)
		if err != nil {
			return err
		}

		spent := req.Spent
		suspicious := actor.Role == models.RoleCashier && actor.Suspicious

		purchase := models.Transaction{
			Utorid:     owner.Utorid,
			Amount:     amount,
			Type:       models.TransactionTypePurchase,
			Spent:      &spent,
			Suspicious: suspicious,
			Remark:     req.Remark,
			CreatedBy:  actor.Utorid,
			Promotions: applied,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		earned := 0
		if !suspicious {
			if err := adjustPoints(tx, owner.Utorid, amount); err != nil {
				return err
			}
			earned = amount
		}

		view = &PurchaseView{
			ID:           purchase.ID,
			Utorid:       purchase.Utorid,
			Type:         purchase.Type,
			Spent:        spent,
			Earned:       earned,
			Remark:       purchase.Remark,
			PromotionIDs: purchase.PromotionIDs(),
			CreatedBy:    purchase.CreatedBy,
		}
		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	invalidateUserCache(ownerID)

	return view, nil
}

// CreateAdjustment records a manager correction against an existing
// transaction. The balance delta applies immediately and may push the
// balance negative; that is the manager override.
func CreateAdjustment(req AdjustmentRequest, actor models.User) (*AdjustmentView, error) {
	if !actor.Role.AtLeast(models.RoleManager) {
		return nil, forbidden("cannot adjust a transaction as a cashier")
	}

	var view *AdjustmentView
	var ownerID uint

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		owner, err := lockUserByUtorid(tx, req.Utorid)
		if err != nil {
			return err
		}
		ownerID = owner.ID

		if err := validatePromotionIDs(tx, req.PromotionIDs, owner); err != nil {
			return err
		}

		var related models.Transaction
		if err := tx.First(&related, req.RelatedID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("could not find a transaction with this relatedId")
			}
			return err
		}
		if related.Suspicious {
			return badPayload("verify this transaction before adjustment")
		}

		var promotions []models.Promotion
		if len(req.PromotionIDs) > 0 {
			if err := tx.Find(&promotions, req.PromotionIDs).Error; err != nil {
				return err
			}
		}

		relatedID := req.RelatedID
		adjustment := models.Transaction{
			Utorid:     owner.Utorid,
			Amount:     req.Amount,
			Type:       models.TransactionTypeAdjustment,
			RelatedID:  &relatedID,
			Suspicious: false,
			Remark:     req.Remark,
			CreatedBy:  actor.Utorid,
			Promotions: promotions,
		}
		if err := tx.Create(&adjustment).Error; err != nil {
			return err
		}

		if err := adjustPoints(tx, owner.Utorid, req.Amount); err != nil {
			return err
		}

		view = &AdjustmentView{
			ID:           adjustment.ID,
			Utorid:       adjustment.Utorid,
			Amount:       adjustment.Amount,
			Type:         adjustment.Type,
			RelatedID:    relatedID,
			Remark:       adjustment.Remark,
			PromotionIDs: adjustment.PromotionIDs(),
			CreatedBy:    adjustment.CreatedBy,
		}
		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	invalidateUserCache(ownerID)

	return view, nil
}

// CreateTransfer moves points from the sender to a recipient as a pair of
// mirrored transactions, all-or-nothing.
func CreateTransfer(sender models.User, recipientID uint, amount int, remark string) (*TransferView, error) {
	if !sender.Verified {
		return nil, notVerified("user is not verified")
	}
	if amount <= 0 {
		return nil, badPayload("invalid amount, must be a positive integer")
	}

	var view *TransferView

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// Re-read the sender under lock so the balance check holds.
		locked, err := lockUserByID(tx, sender.ID)
		if err != nil {
			return err
		}

		recipient, err := lockUserByID(tx, recipientID)
		if err != nil {
			if KindOf(err) == KindNotFound {
				return notFound("recipient not found")
			}
			return err
		}

		if locked.Points < amount {
			return badPayload("insufficient points to send")
		}

		recipientRef := recipient.ID
		senderRef := locked.ID

		outgoing := models.Transaction{
			Utorid:    locked.Utorid,
			Amount:    -amount,
			Type:      models.TransactionTypeTransfer,
			RelatedID: &recipientRef,
			Remark:    remark,
			CreatedBy: locked.Utorid,
		}
		if err := tx.Create(&outgoing).Error; err != nil {
			return err
		}

		incoming := models.Transaction{
			Utorid:    recipient.Utorid,
			Amount:    amount,
			Type:      models.TransactionTypeTransfer,
			RelatedID: &senderRef,
			Remark:    remark,
			CreatedBy: locked.Utorid,
		}
		if err := tx.Create(&incoming).Error; err != nil {
			return err
		}

		if err := adjustPoints(tx, locked.Utorid, -amount); err != nil {
			return err
		}
		if err := adjustPoints(tx, recipient.Utorid, amount); err != nil {
			return err
		}

		view = &TransferView{
			ID:        outgoing.ID,
			Sender:    locked.Utorid,
			Recipient: recipient.Utorid,
			Type:      models.TransactionTypeTransfer,
			Sent:      amount,
			Remark:    remark,
			CreatedBy: locked.Utorid,
		}
		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	invalidateUserCache(sender.ID)
	invalidateUserCache(recipientID)

	return view, nil
}

// CreateRedemption opens a pending redemption. The points are debited at
// request time so they cannot be double-spent across pending redemptions;
// processing later only flips state.
func CreateRedemption(actor models.User, amount int, remark string) (*RedemptionView, error) {
	if !actor.Verified {
		return nil, notVerified("user is not verified")
	}
	if amount <= 0 {
		return nil, badPayload("invalid amount, must be a positive integer")
	}

	var view *RedemptionView

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := lockUserByID(tx, actor.ID)
		if err != nil {
			return err
		}

		if locked.Points < amount {
			return badPayload("insufficient points to redeem")
		}

		processed := false
		redemption := models.Transaction{
			Utorid:    locked.Utorid,
			Amount:    -amount,
			Type:      models.TransactionTypeRedemption,
			Processed: &processed,
			Remark:    remark,
			CreatedBy: locked.Utorid,
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return err
		}

		if err := adjustPoints(tx, locked.Utorid, -amount); err != nil {
			return err
		}

		view = &RedemptionView{
			ID:          redemption.ID,
			Utorid:      redemption.Utorid,
			Type:        redemption.Type,
			ProcessedBy: nil,
			Amount:      amount,
			Remark:      redemption.Remark,
			CreatedBy:   redemption.CreatedBy,
		}
		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	invalidateUserCache(actor.ID)

	return view, nil
}

// ProcessRedemption completes a pending redemption. The balance was
// already debited at request time, so processing records who handled it
// and how much was redeemed, nothing more.
func ProcessRedemption(transactionID uint, actor models.User) (*ProcessedRedemptionView, error) {
	var view *ProcessedRedemptionView

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var pending models.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pending, transactionID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("transaction not found")
			}
			return err
		}

		if pending.Type != models.TransactionTypeRedemption {
			return badPayload("cannot process a non-redemption transaction")
		}
		if pending.Processed != nil && *pending.Processed {
			return badPayload("transaction already processed")
		}

		redeemed := -pending.Amount
		processorID := actor.ID
		processed := true

		updates := map[string]interface{}{
			"redeemed":   redeemed,
			"related_id": processorID,
			"processed":  processed,
		}
		if err := tx.Model(&pending).Updates(updates).Error; err != nil {
			return err
		}

		view = &ProcessedRedemptionView{
			ID:          pending.ID,
			Utorid:      pending.Utorid,
			Type:        pending.Type,
			ProcessedBy: actor.Utorid,
			Redeemed:    redeemed,
			Remark:      pending.Remark,
			CreatedBy:   pending.CreatedBy,
		}
		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	return view, nil
}

// SetTransactionSuspicious flips a transaction's suspicious flag and
// applies the inverse balance correction: flagging takes the amount back
// from the owner, clearing re-applies it. A no-op flip is rejected so a
// correction is never applied twice.
func SetTransactionSuspicious(transactionID uint, suspicious bool) (*TransactionView, error) {
	var view *TransactionView
	var ownerUtorid string

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Promotions").First(&transaction, transactionID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("transaction not found")
			}
			return err
		}

		if transaction.Suspicious == suspicious {
			return badPayload("transaction already has this value for suspicious")
		}

		if err := tx.Model(&transaction).Update("suspicious", suspicious).Error; err != nil {
			return err
		}

		delta := transaction.Amount
		if suspicious {
			delta = -delta
		}
		if err := adjustPoints(tx, transaction.Utorid, delta); err != nil {
			return err
		}
		ownerUtorid = transaction.Utorid

		v := newTransactionView(transaction)
		v.Suspicious = suspicious
		view = &v
		return nil
	})
	if err != nil {
		return nil, serviceErr(err)
	}

	if owner, err := FindUserByUtorid(ownerUtorid); err == nil {
		invalidateUserCache(owner.ID)
	}

	return view, nil
}

// TransactionFilter defines criteria for filtering the transaction ledger.
type TransactionFilter struct {
	Utorid      string
	CreatedBy   string
	Suspicious  *bool
	PromotionID *uint
	Type        *models.TransactionType
	RelatedID   *uint
	Amount      *float64
	Operator    string // gte or lte, required with Amount
	Page        int
	Limit       int
	OrderBy     string
	Order       string
}

var transactionSortable = map[string]string{
	"utorid":    "utorid",
	"amount":    "amount",
	"type":      "type",
	"relatedId": "related_id",
	"remark":    "remark",
	"createdBy": "created_by",
	"createdAt": "created_at",
}

// FindTransactions retrieves a paginated, filtered slice of the ledger.
func FindTransactions(filter TransactionFilter) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := database.DB.Model(&models.Transaction{})

	if filter.Utorid != "" {
		query = query.Where("transactions.utorid = ?", filter.Utorid)
	}
	if filter.CreatedBy != "" {
		query = query.Where("transactions.created_by = ?", filter.CreatedBy)
	}
	if filter.Suspicious != nil {
		query = query.Where("transactions.suspicious = ?", *filter.Suspicious)
	}
	if filter.PromotionID != nil {
		query = query.Joins("JOIN transaction_promotions tp ON tp.transaction_id = transactions.id").
			Where("tp.promotion_id = ?", *filter.PromotionID)
	}
	if filter.Type != nil {
		if !filter.Type.Valid() {
			return nil, 0, badPayload("invalid type: %s", *filter.Type)
		}
		query = query.Where("transactions.type = ?", *filter.Type)
		if filter.RelatedID != nil {
			query = query.Where("transactions.related_id = ?", *filter.RelatedID)
		}
	} else if filter.RelatedID != nil {
		return nil, 0, badPayload("relatedId must be used with type")
	}

	if filter.Amount != nil {
		switch filter.Operator {
		case "gte":
			query = query.Where("transactions.amount >= ?", *filter.Amount)
		case "lte":
			query = query.Where("transactions.amount <= ?", *filter.Amount)
		default:
			return nil, 0, badPayload("invalid operator, must be gte or lte")
		}
	} else if filter.Operator != "" {
		return nil, 0, badPayload("amount and operator must be specified together")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internal(err)
	}

	if filter.OrderBy != "" {
		column, ok := transactionSortable[filter.OrderBy]
		if !ok {
			return nil, 0, badPayload("invalid orderBy field: %s", filter.OrderBy)
		}
		direction := strings.ToLower(filter.Order)
		if direction != "asc" && direction != "desc" {
			return nil, 0, badPayload("invalid order, must be asc or desc")
		}
		query = query.Order("transactions." + column + " " + direction)
	} else {
		query = query.Order("transactions.id desc")
	}

	offset := (filter.Page - 1) * filter.Limit
	err := query.Preload("Promotions").Limit(filter.Limit).Offset(offset).Find(&transactions).Error
	if err != nil {
		return nil, 0, internal(err)
	}

	return transactions, total, nil
}

// GetTransactionByID fetches a single ledger entry with its promotions.
func GetTransactionByID(transactionID uint) (*TransactionView, error) {
	var transaction models.Transaction
	err := database.DB.Preload("Promotions").First(&transaction, transactionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("transaction not found")
		}
		return nil, internal(err)
	}

	view := newTransactionView(transaction)
	return &view, nil
}

// GenerateTransactionCSV renders a ledger slice as CSV for export.
func GenerateTransactionCSV(transactions []models.Transaction) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{
		"ID", "Time", "Utorid", "Type", "Amount",
		"Spent", "Related ID", "Suspicious", "Redeemed",
		"Remark", "Created By",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range transactions {
		spent := ""
		if t.Spent != nil {
			spent = fmt.Sprintf("%.2f", *t.Spent)
		}
		relatedID := ""
		if t.RelatedID != nil {
			relatedID = strconv.FormatUint(uint64(*t.RelatedID), 10)
		}
		redeemed := ""
		if t.Redeemed != nil {
			redeemed = strconv.Itoa(*t.Redeemed)
		}

		record := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.CreatedAt.Format(time.RFC3339),
			t.Utorid,
			string(t.Type),
			strconv.Itoa(t.Amount),
			spent,
			relatedID,
			strconv.FormatBool(t.Suspicious),
			redeemed,
			t.Remark,
			t.CreatedBy,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
