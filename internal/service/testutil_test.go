package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kmevents-payments/internal/client"
	"kmevents-payments/internal/model"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, client.AutoMigrate(db))

	return db
}

// fakeRazorpay stands in for the gateway SDK. Signature checks are a
// switch, order ids are sequential.
type fakeRazorpay struct {
	mu         sync.Mutex
	orders     int
	sigCalls   int
	lastAmount int64
	lastNotes  map[string]interface{}
	createErr  error
	sigValid   bool
	webhookOK  bool
	fetchBody  map[string]interface{}
}

func (f *fakeRazorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.orders++
	f.lastAmount = amount
	f.lastNotes = notes
	return fmt.Sprintf("order_rz_%d", f.orders), nil
}

func (f *fakeRazorpay) FetchPayment(ctx context.Context, paymentID string) (map[string]interface{}, error) {
	if f.fetchBody != nil {
		return f.fetchBody, nil
	}
	return map[string]interface{}{"id": paymentID}, nil
}

func (f *fakeRazorpay) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sigCalls++
	return f.sigValid
}

func (f *fakeRazorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	return f.webhookOK
}

func (f *fakeRazorpay) Key() string {
	return "rzp_test_key"
}

func (f *fakeRazorpay) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders
}

func seedBooking(t *testing.T, db *gorm.DB, bookingID string, amount int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Booking{
		BookingID: bookingID,
		EventID:   "EV-1",
		UserID:    "usr_1",
		Status:    "PENDING",
		Amount:    amount,
		Currency:  "INR",
	}).Error)
}
