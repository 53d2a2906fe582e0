package checkout_test

import (
	"errors"
	"testing"

	"jojoprompts/pkg/checkout"

	"github.com/stretchr/testify/require"
)

func TestClassifyBuckets(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		retryable bool
		critical  bool
	}{
		{"network", errors.New("fetch failed: network unreachable"), checkout.ErrCodeNetwork, true, false},
		{"connection refused", errors.New("dial tcp: connection refused"), checkout.ErrCodeNetwork, true, false},
		{"client load", errors.New("payment sdk failed to initialize"), checkout.ErrCodeClientLoad, true, false},
		{"timeout", errors.New("request timed out after 30s"), checkout.ErrCodeTimeout, true, false},
		{"deadline", errors.New("context deadline exceeded"), checkout.ErrCodeTimeout, true, false},
		{"configuration", errors.New("invalid client credentials"), checkout.ErrCodeConfiguration, false, true},
		{"auth", errors.New("401 unauthorized"), checkout.ErrCodeAuth, true, false},
		{"declined", errors.New("card was declined: insufficient funds"), checkout.ErrCodeDeclined, false, false},
		{"unknown", errors.New("something odd happened"), checkout.ErrCodeUnknown, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			perr := checkout.Classify(tc.err, checkout.ProviderPayPal)
			require.Equal(t, tc.code, perr.Code)
			require.Equal(t, tc.retryable, perr.Retryable)
			require.Equal(t, tc.critical, perr.Critical)
			require.NotEmpty(t, perr.Message)
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Network keywords outrank timeout keywords when both appear.
	perr := checkout.Classify(errors.New("network request timed out"), checkout.ProviderTap)
	require.Equal(t, checkout.ErrCodeNetwork, perr.Code)
}

func TestClassifyDeclinedCarriesSuggestions(t *testing.T) {
	perr := checkout.Classify(errors.New("payment declined"), checkout.ProviderTap)
	require.Equal(t, checkout.ErrCodeDeclined, perr.Code)
	require.NotEmpty(t, perr.Suggestions)
}

func TestClassifyMessageNamesProvider(t *testing.T) {
	perr := checkout.Classify(errors.New("request timed out"), checkout.ProviderTap)
	require.Contains(t, perr.Message, "Tap")
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := checkout.Classify(errors.New("invalid key"), checkout.ProviderPayPal)
	again := checkout.Classify(orig, checkout.ProviderTap)
	require.Same(t, orig, again)
}

func TestClassifyNilError(t *testing.T) {
	perr := checkout.Classify(nil, checkout.ProviderPayPal)
	require.Equal(t, checkout.ErrCodeUnknown, perr.Code)
	require.True(t, perr.Retryable)
}
