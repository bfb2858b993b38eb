package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/pkg/requestcontext"
)

func TestRequestMetadataStampsIDAndTime(t *testing.T) {
	var (
		requestID     string
		first, second time.Time
	)
	h := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = requestcontext.RequestID(r.Context())
		first = requestcontext.Now(r.Context())
		time.Sleep(5 * time.Millisecond)
		second = requestcontext.Now(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, requestID)
	assert.Equal(t, requestID, w.Header().Get("X-Request-ID"))

	// The clock is pinned at entry: two reads inside one request agree.
	require.False(t, first.IsZero())
	assert.Equal(t, first, second)
}

func TestRequestMetadataKeepsCallerID(t *testing.T) {
	var seen string
	h := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "caller-supplied", seen)
}
