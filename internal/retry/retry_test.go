package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableClassification(t *testing.T) {
	assert.True(t, Retryable(KindRateLimit))
	assert.True(t, Retryable(KindTimeout))
	assert.True(t, Retryable(KindNetwork))
	assert.True(t, Retryable(KindServerError))
	assert.False(t, Retryable(KindClientError))
	assert.False(t, Retryable(KindNotFound))
	assert.False(t, Retryable(KindInvalid))
}

func TestClassifyStatusCodes(t *testing.T) {
	assert.Equal(t, KindRateLimit, Classify(429, nil, 0).Kind)
	assert.Equal(t, KindNotFound, Classify(404, nil, 0).Kind)
	assert.Equal(t, KindServerError, Classify(503, nil, 0).Kind)
	assert.Equal(t, KindClientError, Classify(403, nil, 0).Kind)
	assert.Nil(t, Classify(200, nil, 0))
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	policy := Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Multiplier: 2, Jitter: 0.1, MaxDelay: 10 * time.Millisecond}

	err := Do(context.Background(), policy, func(ctx context.Context, attempt int) error {
		attempts++
		if attempt < 2 {
			return &Error{Kind: KindServerError, Err: errors.New("boom")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoDoesNotRetryClientError(t *testing.T) {
	attempts := 0
	policy := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	err := Do(context.Background(), policy, func(ctx context.Context, attempt int) error {
		attempts++
		return &Error{Kind: KindClientError, Err: errors.New("nope")}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var classified *Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, KindClientError, classified.Kind)
}

func TestDoExhaustsRetries(t *testing.T) {
	attempts := 0
	policy := Policy{MaxRetries: 2, BaseDelay: time.Millisecond}

	err := Do(context.Background(), policy, func(ctx context.Context, attempt int) error {
		attempts++
		return &Error{Kind: KindTimeout, Err: errors.New("slow")}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial + 2 retries
}
