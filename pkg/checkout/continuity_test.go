package checkout_test

import (
	"testing"
	"time"

	"jojoprompts/pkg/checkout"

	"github.com/stretchr/testify/require"
)

func sampleContext() *checkout.CheckoutContext {
	return &checkout.CheckoutContext{
		SessionID:   "sess-1",
		PlanID:      "plan-pro",
		UserID:      "user-42",
		AmountCents: 4900,
		Currency:    "USD",
		OrderID:     "order-9",
		AppliedDiscount: &checkout.AppliedDiscount{
			ID: "d1", Code: "WELCOME10", Type: "percentage", Value: 10,
		},
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestContinuityRoundTrip(t *testing.T) {
	store := checkout.NewContinuityStore(checkout.NewMemoryStorage())
	ctx := sampleContext()

	require.True(t, store.Backup(ctx))
	restored := store.Restore("sess-1")
	require.NotNil(t, restored)
	require.Equal(t, ctx, restored)
}

func TestContinuityRestoreWithoutBackup(t *testing.T) {
	store := checkout.NewContinuityStore(checkout.NewMemoryStorage())
	require.Nil(t, store.Restore("nope"))
	require.Nil(t, store.Restore(""))
}

func TestContinuityClear(t *testing.T) {
	store := checkout.NewContinuityStore(checkout.NewMemoryStorage())
	require.True(t, store.Backup(sampleContext()))
	store.Clear("sess-1")
	require.Nil(t, store.Restore("sess-1"))
	// Clearing again is harmless.
	store.Clear("sess-1")
}

func TestContinuityCorruptPayload(t *testing.T) {
	storage := checkout.NewMemoryStorage()
	store := checkout.NewContinuityStore(storage)
	require.NoError(t, storage.Put("sess-1", []byte("{not json")))
	require.Nil(t, store.Restore("sess-1"))
}

func TestContinuityRejectsStructurallyIncomplete(t *testing.T) {
	storage := checkout.NewMemoryStorage()
	store := checkout.NewContinuityStore(storage)
	// Valid JSON, but missing the identifying fields.
	require.NoError(t, storage.Put("sess-1", []byte(`{"amount_cents":100}`)))
	require.Nil(t, store.Restore("sess-1"))
}

func TestContinuityLastWriteWins(t *testing.T) {
	store := checkout.NewContinuityStore(checkout.NewMemoryStorage())
	first := sampleContext()
	require.True(t, store.Backup(first))

	second := sampleContext()
	second.OrderID = "order-10"
	require.True(t, store.Backup(second))

	restored := store.Restore("sess-1")
	require.NotNil(t, restored)
	require.Equal(t, "order-10", restored.OrderID)
}

func TestContinuityBackupRejectsEmptySession(t *testing.T) {
	store := checkout.NewContinuityStore(checkout.NewMemoryStorage())
	require.False(t, store.Backup(nil))
	require.False(t, store.Backup(&checkout.CheckoutContext{PlanID: "p", UserID: "u"}))
}
