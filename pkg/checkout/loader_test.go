package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jojoprompts/pkg/checkout"

	"github.com/stretchr/testify/require"
)

func TestLoaderDeduplicatesConcurrentLoads(t *testing.T) {
	gw := &fakeGateway{name: checkout.ProviderPayPal, initDelay: 50 * time.Millisecond}
	loader := checkout.NewLoader(time.Second, gw)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = loader.Load(context.Background(), checkout.ProviderPayPal)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	inits, _, _ := gw.counts()
	require.Equal(t, 1, inits, "handshake must run exactly once")
	require.True(t, loader.Loaded(checkout.ProviderPayPal))
}

func TestLoaderAlreadyLoadedResolvesImmediately(t *testing.T) {
	gw := &fakeGateway{name: checkout.ProviderTap}
	loader := checkout.NewLoader(time.Second, gw)

	_, err := loader.Load(context.Background(), checkout.ProviderTap)
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), checkout.ProviderTap)
	require.NoError(t, err)

	inits, _, _ := gw.counts()
	require.Equal(t, 1, inits)
}

func TestLoaderFailureClearsCachedState(t *testing.T) {
	gw := &fakeGateway{name: checkout.ProviderPayPal}
	gw.initErr = errors.New("network unreachable")
	loader := checkout.NewLoader(time.Second, gw)

	_, err := loader.Load(context.Background(), checkout.ProviderPayPal)
	require.Error(t, err)
	var perr *checkout.PaymentError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, checkout.ErrCodeNetwork, perr.Code)
	require.False(t, loader.Loaded(checkout.ProviderPayPal))

	// A later call starts fresh and can succeed.
	gw.mu.Lock()
	gw.initErr = nil
	gw.mu.Unlock()
	_, err = loader.Load(context.Background(), checkout.ProviderPayPal)
	require.NoError(t, err)
	inits, _, _ := gw.counts()
	require.Equal(t, 2, inits)
}

func TestLoaderTimeout(t *testing.T) {
	gw := &fakeGateway{name: checkout.ProviderPayPal, initDelay: time.Second}
	loader := checkout.NewLoader(20*time.Millisecond, gw)

	_, err := loader.Load(context.Background(), checkout.ProviderPayPal)
	require.Error(t, err)
	var perr *checkout.PaymentError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, checkout.ErrCodeTimeout, perr.Code)
	require.True(t, perr.Retryable)
}

func TestLoaderCallerCancellationDoesNotAbortHandshake(t *testing.T) {
	gw := &fakeGateway{name: checkout.ProviderTap, initDelay: 100 * time.Millisecond}
	loader := checkout.NewLoader(time.Second, gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Load(ctx, checkout.ProviderTap)
	require.Error(t, err)

	// The handshake keeps running; a patient caller still gets it.
	_, err = loader.Load(context.Background(), checkout.ProviderTap)
	require.NoError(t, err)
	inits, _, _ := gw.counts()
	require.Equal(t, 1, inits)
}

func TestLoaderReset(t *testing.T) {
	gw := &fakeGateway{name: checkout.ProviderTap}
	loader := checkout.NewLoader(time.Second, gw)

	_, err := loader.Load(context.Background(), checkout.ProviderTap)
	require.NoError(t, err)
	loader.Reset(checkout.ProviderTap)
	require.False(t, loader.Loaded(checkout.ProviderTap))

	_, err = loader.Load(context.Background(), checkout.ProviderTap)
	require.NoError(t, err)
	inits, _, _ := gw.counts()
	require.Equal(t, 2, inits)
}

func TestLoaderUnknownProvider(t *testing.T) {
	loader := checkout.NewLoader(time.Second)
	_, err := loader.Load(context.Background(), checkout.ProviderPayPal)
	var perr *checkout.PaymentError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, checkout.ErrCodeConfiguration, perr.Code)
	require.True(t, perr.Critical)
}
