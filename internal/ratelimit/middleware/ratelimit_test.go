package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fudign/kfa-sub000/internal/ratelimit/models"
	"github.com/fudign/kfa-sub000/internal/ratelimit/store/bucket"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
	"github.com/fudign/kfa-sub000/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

var submitPolicy = models.Policy{Name: "applications", Limit: 2, Window: time.Minute}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func fromIP(t *testing.T, ip string) *http.Request {
	req := testutil.NewRequest(t, http.MethodPost, "/applications")
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, ""))
}

func TestPerIP(t *testing.T) {
	t.Run("throttles after the limit with a retry hint", func(t *testing.T) {
		h := New(bucket.NewInMemoryBucketStore(), nil).PerIP(submitPolicy)(okHandler())

		for range submitPolicy.Limit {
			rr := testutil.DoRequest(h, fromIP(t, "203.0.113.7"))
			require.Equal(t, http.StatusCreated, rr.Code)
		}
		rr := testutil.DoRequest(h, fromIP(t, "203.0.113.7"))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		testutil.AssertJSONContains(t, rr, "error", "rate_limit_exceeded")
	})

	t.Run("each ip has its own budget", func(t *testing.T) {
		h := New(bucket.NewInMemoryBucketStore(), nil).PerIP(submitPolicy)(okHandler())
		for range submitPolicy.Limit {
			testutil.DoRequest(h, fromIP(t, "203.0.113.7"))
		}
		rr := testutil.DoRequest(h, fromIP(t, "198.51.100.2"))
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("store failure lets the request through", func(t *testing.T) {
		h := New(failingStore{}, nil).PerIP(submitPolicy)(okHandler())
		rr := testutil.DoRequest(h, fromIP(t, "203.0.113.7"))
		assert.Equal(t, http.StatusCreated, rr.Code)
	})
}
