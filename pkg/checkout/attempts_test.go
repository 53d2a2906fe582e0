package checkout_test

import (
	"errors"
	"testing"

	"jojoprompts/pkg/checkout"

	"github.com/stretchr/testify/require"
)

func retryableFailure() *checkout.PaymentError {
	return checkout.Classify(errors.New("network unreachable"), checkout.ProviderPayPal)
}

func TestTrackerStartGuardsDoubleStart(t *testing.T) {
	tr := checkout.NewTracker(3)
	require.NoError(t, tr.Start(checkout.ProviderPayPal))
	require.Error(t, tr.Start(checkout.ProviderPayPal), "second start while processing must be rejected")
	// The other provider is independent.
	require.NoError(t, tr.Start(checkout.ProviderTap))
}

func TestTrackerBoundedRetries(t *testing.T) {
	tr := checkout.NewTracker(3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, tr.Start(checkout.ProviderPayPal))
		tr.Fail(checkout.ProviderPayPal, retryableFailure())
		st := tr.State(checkout.ProviderPayPal)
		require.Equal(t, i, st.RetryCount)
		require.False(t, st.Processing)
		if i < 3 {
			require.True(t, st.Available)
			require.True(t, tr.Retry(checkout.ProviderPayPal))
		}
	}
	st := tr.State(checkout.ProviderPayPal)
	require.False(t, st.Available, "provider disabled once the budget is spent")
	require.False(t, tr.Retry(checkout.ProviderPayPal), "retry is a no-op past the budget")
	require.False(t, tr.State(checkout.ProviderPayPal).Available)

	// The other provider was never touched.
	require.True(t, tr.State(checkout.ProviderTap).Available)
	require.Zero(t, tr.State(checkout.ProviderTap).RetryCount)
}

func TestTrackerCriticalErrorDisablesImmediately(t *testing.T) {
	tr := checkout.NewTracker(3)
	require.NoError(t, tr.Start(checkout.ProviderTap))
	perr := checkout.Classify(errors.New("invalid key"), checkout.ProviderTap)
	require.True(t, perr.Critical)
	tr.Fail(checkout.ProviderTap, perr)

	st := tr.State(checkout.ProviderTap)
	require.False(t, st.Available, "one configuration failure disables the provider")
	require.Equal(t, 1, st.RetryCount)
}

func TestTrackerRetryCannotReviveCriticalDisable(t *testing.T) {
	tr := checkout.NewTracker(3)
	require.NoError(t, tr.Start(checkout.ProviderTap))
	perr := checkout.Classify(errors.New("merchant account misconfigured"), checkout.ProviderTap)
	require.True(t, perr.Critical)
	tr.Fail(checkout.ProviderTap, perr)

	require.False(t, tr.Retry(checkout.ProviderTap), "a configuration disable holds for the session")
	require.False(t, tr.State(checkout.ProviderTap).Available)

	// Administrative disables are equally final.
	tr.MarkUnavailable(checkout.ProviderPayPal, "down")
	require.False(t, tr.Retry(checkout.ProviderPayPal))
	require.False(t, tr.State(checkout.ProviderPayPal).Available)
}

func TestTrackerSucceedResetsWholeSession(t *testing.T) {
	tr := checkout.NewTracker(3)
	require.NoError(t, tr.Start(checkout.ProviderPayPal))
	tr.Fail(checkout.ProviderPayPal, retryableFailure())
	require.True(t, tr.HasAnyError())

	require.NoError(t, tr.Start(checkout.ProviderTap))
	tr.Succeed(checkout.ProviderTap)

	require.False(t, tr.HasAnyError())
	for _, p := range checkout.Providers {
		st := tr.State(p)
		require.Zero(t, st.RetryCount, "%s retry count resets on any success", p)
		require.Empty(t, st.Error)
		require.False(t, st.Processing)
	}
}

func TestTrackerMarkUnavailable(t *testing.T) {
	tr := checkout.NewTracker(3)
	tr.MarkUnavailable(checkout.ProviderPayPal, "provider misconfigured")
	st := tr.State(checkout.ProviderPayPal)
	require.False(t, st.Available)
	require.Equal(t, "provider misconfigured", st.Error)
	require.Error(t, tr.Start(checkout.ProviderPayPal))
}

func TestTrackerAllUnavailable(t *testing.T) {
	tr := checkout.NewTracker(3)
	require.False(t, tr.AllUnavailable())
	tr.MarkUnavailable(checkout.ProviderPayPal, "down")
	require.False(t, tr.AllUnavailable())
	tr.MarkUnavailable(checkout.ProviderTap, "down")
	require.True(t, tr.AllUnavailable())
}

func TestTrackerRetryClearsError(t *testing.T) {
	tr := checkout.NewTracker(3)
	require.NoError(t, tr.Start(checkout.ProviderPayPal))
	tr.Fail(checkout.ProviderPayPal, retryableFailure())
	require.NotEmpty(t, tr.State(checkout.ProviderPayPal).Error)

	require.True(t, tr.Retry(checkout.ProviderPayPal))
	st := tr.State(checkout.ProviderPayPal)
	require.Empty(t, st.Error)
	require.True(t, st.Available)
	require.Equal(t, 1, st.RetryCount, "retry does not rewind the count")
}
