package services

import (
	"testing"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(
		"transaction_promotions", "event_guests", "event_organizers",
		&models.Transaction{}, &models.Promotion{}, &models.UserPromotion{},
		&models.Event{}, &models.PasswordResetToken{}, &models.User{},
	)
	err = db.AutoMigrate(
		&models.User{},
		&models.PasswordResetToken{},
		&models.Transaction{},
		&models.Promotion{},
		&models.UserPromotion{},
		&models.Event{},
	)
	if err != nil {
		panic("failed to migrate database")
	}

	database.DB = db
	database.RedisClient = nil
}

func setupTestRedis() *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	database.RedisClient = redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr
}

func seedUser(utorid string, role models.Role, points int) models.User {
	user := models.User{
		Utorid:   utorid,
		Name:     "Test " + utorid,
		Email:    utorid + "@mail.utoronto.ca",
		Role:     role,
		Points:   points,
		Verified: true,
	}
	database.DB.Create(&user)
	return user
}

func seedActivePromotion(promoType models.PromotionType, minSpending, rate float64, points int) models.Promotion {
	now := time.Now()
	promotion := models.Promotion{
		Name:        "Seeded promotion",
		Description: "Seeded for ledger tests",
		Type:        promoType,
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(time.Hour),
		MinSpending: minSpending,
		Rate:        rate,
		Points:      points,
	}
	database.DB.Create(&promotion)
	return promotion
}

func userBalance(t *testing.T, utorid string) int {
	t.Helper()
	var user models.User
	err := database.DB.Where("utorid = ?", utorid).First(&user).Error
	assert.NoError(t, err)
	return user.Points
}

func TestCreatePurchaseBaseAccrual(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)

	view, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10.0}, cashier)
	assert.NoError(t, err)
	assert.Equal(t, 40, view.Earned) // one point per $0.25
	assert.Equal(t, 40, userBalance(t, "buyer111"))
}

func TestCreatePurchaseWithPromotion(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)
	promotion := seedActivePromotion(models.PromotionTypeAutomatic, 20, 0.1, 0)

	view, err := CreatePurchase(PurchaseRequest{
		Utorid:       "buyer111",
		Spent:        25,
		PromotionIDs: []uint{promotion.ID},
	}, cashier)
	assert.NoError(t, err)
	// 25/0.25 base plus 25/0.1 promotion bonus
	assert.Equal(t, 350, view.Earned)
	assert.Equal(t, 350, userBalance(t, "buyer111"))
	assert.Equal(t, []uint{promotion.ID}, view.PromotionIDs)
}

func TestCreatePurchaseMinSpendingNotMet(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)
	promotion := seedActivePromotion(models.PromotionTypeAutomatic, 50, 0.1, 100)

	view, err := CreatePurchase(PurchaseRequest{
		Utorid:       "buyer111",
		Spent:        10,
		PromotionIDs: []uint{promotion.ID},
	}, cashier)
	assert.NoError(t, err)
	// Below the minimum the promotion contributes nothing, it is not an error.
	assert.Equal(t, 40, view.Earned)
}

func TestOneTimePromotionConsumedPerUser(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)
	seedUser("buyer222", models.RoleRegular, 0)
	promotion := seedActivePromotion(models.PromotionTypeOneTime, 0, 0, 50)

	_, err := CreatePurchase(PurchaseRequest{
		Utorid: "buyer111", Spent: 5, PromotionIDs: []uint{promotion.ID},
	}, cashier)
	assert.NoError(t, err)

	_, err = CreatePurchase(PurchaseRequest{
		Utorid: "buyer111", Spent: 5, PromotionIDs: []uint{promotion.ID},
	}, cashier)
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))

	// A different user can still consume it.
	view, err := CreatePurchase(PurchaseRequest{
		Utorid: "buyer222", Spent: 5, PromotionIDs: []uint{promotion.ID},
	}, cashier)
	assert.NoError(t, err)
	assert.Equal(t, 70, view.Earned)
}

func TestCreatePurchaseBySuspiciousCashier(t *testing.T) {
	setupTestDB()

	cashier := models.User{
		Utorid: "shadycsh", Name: "Shady", Email: "shady@mail.utoronto.ca",
		Role: models.RoleCashier, Verified: true, Suspicious: true,
	}
	database.DB.Create(&cashier)
	seedUser("buyer111", models.RoleRegular, 0)

	view, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10}, cashier)
	assert.NoError(t, err)
	assert.Equal(t, 0, view.Earned)
	assert.Equal(t, 0, userBalance(t, "buyer111"))

	var recorded models.Transaction
	database.DB.First(&recorded, view.ID)
	assert.True(t, recorded.Suspicious)
	assert.Equal(t, 40, recorded.Amount) // amount is kept for later clearing
}

func TestSuspiciousFlagRoundTrip(t *testing.T) {
	setupTestDB()

	cashier := models.User{
		Utorid: "shadycsh", Name: "Shady", Email: "shady@mail.utoronto.ca",
		Role: models.RoleCashier, Verified: true, Suspicious: true,
	}
	database.DB.Create(&cashier)
	seedUser("buyer111", models.RoleRegular, 0)

	view, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10}, cashier)
	assert.NoError(t, err)

	// Clearing credits the held amount.
	cleared, err := SetTransactionSuspicious(view.ID, false)
	assert.NoError(t, err)
	assert.False(t, cleared.Suspicious)
	assert.Equal(t, 40, userBalance(t, "buyer111"))

	// Re-flagging takes it back.
	flagged, err := SetTransactionSuspicious(view.ID, true)
	assert.NoError(t, err)
	assert.True(t, flagged.Suspicious)
	assert.Equal(t, 0, userBalance(t, "buyer111"))

	// A no-op flip is rejected so the correction never applies twice.
	_, err = SetTransactionSuspicious(view.ID, true)
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))
	assert.Equal(t, 0, userBalance(t, "buyer111"))
}

func TestCreateAdjustmentRequiresManager(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)

	_, err := CreateAdjustment(AdjustmentRequest{
		Utorid: "buyer111", Amount: -10, RelatedID: 1,
	}, cashier)
	assert.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestCreateAdjustment(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	manager := seedUser("manager1", models.RoleManager, 0)
	seedUser("buyer111", models.RoleRegular, 0)

	purchase, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10}, cashier)
	assert.NoError(t, err)
	assert.Equal(t, 40, userBalance(t, "buyer111"))

	// An adjustment may push the balance negative.
	view, err := CreateAdjustment(AdjustmentRequest{
		Utorid: "buyer111", Amount: -50, RelatedID: purchase.ID,
	}, manager)
	assert.NoError(t, err)
	assert.Equal(t, -50, view.Amount)
	assert.Equal(t, purchase.ID, view.RelatedID)
	assert.Equal(t, -10, userBalance(t, "buyer111"))
}

func TestCreateAdjustmentRelatedChecks(t *testing.T) {
	setupTestDB()

	manager := seedUser("manager1", models.RoleManager, 0)
	seedUser("buyer111", models.RoleRegular, 0)

	_, err := CreateAdjustment(AdjustmentRequest{
		Utorid: "buyer111", Amount: 10, RelatedID: 999,
	}, manager)
	assert.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))

	suspicious := models.Transaction{
		Utorid: "buyer111", Amount: 40, Type: models.TransactionTypePurchase,
		Suspicious: true, CreatedBy: "shadycsh",
	}
	database.DB.Create(&suspicious)

	_, err = CreateAdjustment(AdjustmentRequest{
		Utorid: "buyer111", Amount: 10, RelatedID: suspicious.ID,
	}, manager)
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))
}

func TestCreateTransfer(t *testing.T) {
	setupTestDB()

	sender := seedUser("sender11", models.RoleRegular, 100)
	recipient := seedUser("receiver", models.RoleRegular, 0)

	view, err := CreateTransfer(sender, recipient.ID, 30, "lunch")
	assert.NoError(t, err)
	assert.Equal(t, "sender11", view.Sender)
	assert.Equal(t, "receiver", view.Recipient)
	assert.Equal(t, 30, view.Sent)

	assert.Equal(t, 70, userBalance(t, "sender11"))
	assert.Equal(t, 30, userBalance(t, "receiver"))

	// The transfer is a mirrored pair, each side pointing at the other user.
	var entries []models.Transaction
	database.DB.Where("type = ?", models.TransactionTypeTransfer).Order("id asc").Find(&entries)
	assert.Len(t, entries, 2)
	assert.Equal(t, -30, entries[0].Amount)
	assert.Equal(t, 30, entries[1].Amount)
	assert.Equal(t, recipient.ID, *entries[0].RelatedID)
	assert.Equal(t, sender.ID, *entries[1].RelatedID)
}

func TestCreateTransferUnverifiedSender(t *testing.T) {
	setupTestDB()

	sender := models.User{
		Utorid: "sender11", Name: "Sender", Email: "sender@mail.utoronto.ca",
		Role: models.RoleRegular, Points: 100, Verified: false,
	}
	database.DB.Create(&sender)
	recipient := seedUser("receiver", models.RoleRegular, 0)

	_, err := CreateTransfer(sender, recipient.ID, 30, "")
	assert.Error(t, err)
	assert.Equal(t, KindNotVerified, KindOf(err))
}

func TestCreateTransferInsufficientPoints(t *testing.T) {
	setupTestDB()

	sender := seedUser("sender11", models.RoleRegular, 10)
	recipient := seedUser("receiver", models.RoleRegular, 0)

	_, err := CreateTransfer(sender, recipient.ID, 30, "")
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))
	assert.Equal(t, 10, userBalance(t, "sender11"))
	assert.Equal(t, 0, userBalance(t, "receiver"))
}

func TestRedemptionLifecycle(t *testing.T) {
	setupTestDB()

	owner := seedUser("redeemer", models.RoleRegular, 50)
	cashier := seedUser("cashier1", models.RoleCashier, 0)

	// The debit happens at request time.
	requested, err := CreateRedemption(owner, 50, "coffee")
	assert.NoError(t, err)
	assert.Equal(t, 50, requested.Amount)
	assert.Nil(t, requested.ProcessedBy)
	assert.Equal(t, 0, userBalance(t, "redeemer"))

	// Processing only flips state, it never debits again.
	processed, err := ProcessRedemption(requested.ID, cashier)
	assert.NoError(t, err)
	assert.Equal(t, 50, processed.Redeemed)
	assert.Equal(t, "cashier1", processed.ProcessedBy)
	assert.Equal(t, 0, userBalance(t, "redeemer"))

	var recorded models.Transaction
	database.DB.First(&recorded, requested.ID)
	assert.True(t, *recorded.Processed)
	assert.Equal(t, 50, *recorded.Redeemed)
	assert.Equal(t, cashier.ID, *recorded.RelatedID)

	// Processing twice is rejected.
	_, err = ProcessRedemption(requested.ID, cashier)
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))
}

func TestCreateRedemptionInsufficientPoints(t *testing.T) {
	setupTestDB()

	owner := seedUser("redeemer", models.RoleRegular, 20)

	_, err := CreateRedemption(owner, 50, "")
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))
	assert.Equal(t, 20, userBalance(t, "redeemer"))
}

func TestProcessNonRedemption(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)

	purchase, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10}, cashier)
	assert.NoError(t, err)

	_, err = ProcessRedemption(purchase.ID, cashier)
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))
}

func TestBalanceMatchesNonSuspiciousLedger(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	manager := seedUser("manager1", models.RoleManager, 0)
	owner := seedUser("buyer111", models.RoleRegular, 0)

	p1, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10}, cashier)
	assert.NoError(t, err)
	_, err = CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 5}, cashier)
	assert.NoError(t, err)
	_, err = CreateAdjustment(AdjustmentRequest{Utorid: "buyer111", Amount: -15, RelatedID: p1.ID}, manager)
	assert.NoError(t, err)

	database.DB.Where("utorid = ?", "buyer111").First(&owner)
	red, err := CreateRedemption(owner, 20, "")
	assert.NoError(t, err)
	_, err = ProcessRedemption(red.ID, cashier)
	assert.NoError(t, err)

	var sum int
	database.DB.Model(&models.Transaction{}).
		Where("utorid = ? AND suspicious = ?", "buyer111", false).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum)

	assert.Equal(t, sum, userBalance(t, "buyer111"))
}

func TestFindTransactionsFilters(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)
	seedUser("buyer222", models.RoleRegular, 0)

	_, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10}, cashier)
	assert.NoError(t, err)
	_, err = CreatePurchase(PurchaseRequest{Utorid: "buyer222", Spent: 5}, cashier)
	assert.NoError(t, err)

	byOwner, total, err := FindTransactions(TransactionFilter{Utorid: "buyer111", Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "buyer111", byOwner[0].Utorid)

	purchaseType := models.TransactionTypePurchase
	byType, total, err := FindTransactions(TransactionFilter{Type: &purchaseType, Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byType, 2)

	// relatedId without type is rejected.
	rid := uint(1)
	_, _, err = FindTransactions(TransactionFilter{RelatedID: &rid, Page: 1, Limit: 10})
	assert.Error(t, err)
	assert.Equal(t, KindBadPayload, KindOf(err))

	// amount needs a valid operator.
	amount := 30.0
	_, _, err = FindTransactions(TransactionFilter{Amount: &amount, Operator: "eq", Page: 1, Limit: 10})
	assert.Error(t, err)

	atLeast, total, err := FindTransactions(TransactionFilter{Amount: &amount, Operator: "gte", Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, 40, atLeast[0].Amount)
}

func TestGenerateTransactionCSV(t *testing.T) {
	setupTestDB()

	cashier := seedUser("cashier1", models.RoleCashier, 0)
	seedUser("buyer111", models.RoleRegular, 0)

	_, err := CreatePurchase(PurchaseRequest{Utorid: "buyer111", Spent: 10, Remark: "books"}, cashier)
	assert.NoError(t, err)

	transactions, _, err := FindTransactions(TransactionFilter{Page: 1, Limit: 10})
	assert.NoError(t, err)

	csvContent, err := GenerateTransactionCSV(transactions)
	assert.NoError(t, err)
	assert.Contains(t, string(csvContent), "buyer111")
	assert.Contains(t, string(csvContent), "purchase")
	assert.Contains(t, string(csvContent), "books")
}
