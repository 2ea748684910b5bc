package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebridge/bitbucket-mcp/pkg/bitbucket"
)

// fastPolicy keeps retry tests quick by shrinking the backoff seed.
func fastPolicy(maxRetries int) bitbucket.RetryPolicy {
	policy := bitbucket.DefaultRetryPolicy()
	policy.MaxRetries = maxRetries
	policy.BaseDelay = time.Millisecond

	return policy
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, msg)
}

func (l *recordingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, entry := range l.entries {
		if entry == msg {
			n++
		}
	}

	return n
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.log(msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.log(msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.log(msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.log(msg) }

func TestClient_RetriesTransientStatusUntilSuccess(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(server.URL, "", WithRetryPolicy(fastPolicy(3)))

	resp, err := client.Get(context.Background(), "/thing", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ExhaustedRetriesYieldTransientError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "", WithRetryPolicy(fastPolicy(2)))

	_, err := client.Get(context.Background(), "/thing", nil)
	require.Error(t, err)
	assert.True(t, bitbucket.IsTransient(err))

	bbErr := &bitbucket.Error{}
	require.ErrorAs(t, err, &bbErr)
	assert.Equal(t, http.StatusBadGateway, bbErr.StatusCode)

	// maxRetries retries on top of the initial attempt, never more.
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_NonRetryableStatusesFailImmediately(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, bitbucket.IsAuthentication},
		{http.StatusForbidden, bitbucket.IsAuthentication},
		{http.StatusNotFound, bitbucket.IsNotFound},
		{http.StatusConflict, bitbucket.IsConflict},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := New(server.URL, "", WithRetryPolicy(fastPolicy(3)))

			_, err := client.Get(context.Background(), "/thing", nil)
			require.Error(t, err)
			assert.True(t, tt.check(err))
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestClient_DeadlineNeverRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := New(server.URL, "", WithRetryPolicy(fastPolicy(5)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/slow", nil)
	require.Error(t, err)
	assert.True(t, bitbucket.IsTimeout(err))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_NetworkErrorClassified(t *testing.T) {
	// A server that is already closed refuses connections.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL, "", WithRetryPolicy(fastPolicy(1)))

	_, err := client.Get(context.Background(), "/thing", nil)
	require.Error(t, err)
	assert.True(t, bitbucket.IsNetwork(err))
}

func TestClient_Backoff(t *testing.T) {
	client := New("https://example.com", "", WithRetryPolicy(bitbucket.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Statuses:   []int{503},
	}))

	for attempt := 0; attempt <= 4; attempt++ {
		floor := time.Second << uint(attempt)
		ceiling := floor + time.Second

		// Jitter is random; sample a few draws per attempt.
		for i := 0; i < 20; i++ {
			delay := client.Backoff(0, 0, attempt, nil)
			assert.GreaterOrEqual(t, delay, floor, "attempt %d", attempt)
			assert.LessOrEqual(t, delay, ceiling, "attempt %d", attempt)
		}
	}

	// Past the cap the delay is pinned, jitter and all.
	assert.Equal(t, bitbucket.BackoffCap, client.Backoff(0, 0, 5, nil))
	assert.Equal(t, bitbucket.BackoffCap, client.Backoff(0, 0, 30, nil))
}

func TestClient_RequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "bitbucket-mcp-test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret-token", WithUserAgent("bitbucket-mcp-test"))

	_, err := client.Get(context.Background(), "/thing", nil)
	require.NoError(t, err)
}

func TestClient_GetTextAcceptsPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		w.Write([]byte("diff --git a/main.go b/main.go"))
	}))
	defer server.Close()

	client := New(server.URL, "")

	diff, err := client.GetText(context.Background(), "/diff", nil)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/main.go b/main.go", diff)
}

func TestClient_ErrorMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","error":{"message":"Repository acme/widgets not found"}}`))
	}))
	defer server.Close()

	client := New(server.URL, "")

	_, err := client.Get(context.Background(), "/repositories/acme/widgets", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Repository acme/widgets not found")
}

func TestClient_BuildURL(t *testing.T) {
	client := New("https://api.example.com/2.0", "")

	assert.Equal(t,
		"https://api.example.com/2.0/repositories/acme",
		client.buildURL("/repositories/acme", nil))

	// Absolute continuation URLs pass through untouched.
	next := "https://api.example.com/2.0/repositories/acme?page=2"
	assert.Equal(t, next, client.buildURL(next, nil))
}

func TestClient_DebugLogsEveryAttempt(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	logger := &recordingLogger{}
	client := New(server.URL, "", WithRetryPolicy(fastPolicy(3)), WithLogger(logger), WithDebug(true))

	_, err := client.Get(context.Background(), "/thing", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, logger.count("HTTP Request"))
	assert.Equal(t, 2, logger.count("retrying request"))
	assert.Equal(t, 1, logger.count("HTTP Response"))
}

func TestClient_PostSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	client := New(server.URL, "")

	resp, err := client.Post(context.Background(), "/things", map[string]string{"name": "widget"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
