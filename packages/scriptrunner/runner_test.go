package scriptrunner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRunner_Invoke(t *testing.T) {
	r := NewShellRunner()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := r.Invoke(ctx, "echo hello")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "hello\n", res.Output)
	})

	t.Run("non-zero exit is a reported failure", func(t *testing.T) {
		res, err := r.Invoke(ctx, "echo oops >&2; exit 3")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Output, "oops")
	})

	t.Run("empty code", func(t *testing.T) {
		res, err := r.Invoke(ctx, "   ")
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := r.Invoke(ctx, "sleep 5")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestShellRunner_Options(t *testing.T) {
	dir := t.TempDir()
	r := NewShellRunner(WithDir(dir), WithEnv(map[string]string{"GREETING": "hi"}))

	res, err := r.Invoke(context.Background(), `echo "$GREETING from $(pwd)"`)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "hi from")
	assert.Contains(t, r.Describe(), "shell sh")
}

func TestShellRunner_MissingShell(t *testing.T) {
	r := NewShellRunner(WithShell("/definitely/not/a/shell"))
	_, err := r.Invoke(context.Background(), "echo hi")
	assert.Error(t, err)
}

func TestRemoteRunner_Invoke(t *testing.T) {
	var gotCode, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotCode = body.Code
		gotToken = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(body.Code, "fail"):
			_, _ = w.Write([]byte(`{"success": false, "output": "[FAIL] nope"}`))
		case strings.Contains(body.Code, "crash"):
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`agent crashed`))
		case strings.Contains(body.Code, "object"):
			_, _ = w.Write([]byte(`{"success": true, "output": {"assertions": []}}`))
		default:
			_, _ = w.Write([]byte(`{"success": true, "output": "[PASS] ok"}`))
		}
	}))
	defer server.Close()

	r := NewRemoteRunner(server.URL, WithHeader("Authorization", "Bearer t0k"))
	ctx := context.Background()

	res, err := r.Invoke(ctx, "document.title")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "[PASS] ok", res.Output)
	assert.Equal(t, "document.title", gotCode)
	assert.Equal(t, "Bearer t0k", gotToken)

	res, err = r.Invoke(ctx, "fail()")
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = r.Invoke(ctx, "object()")
	require.NoError(t, err)
	assert.JSONEq(t, `{"assertions": []}`, res.Output)

	_, err = r.Invoke(ctx, "crash()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRemoteRunner_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output": "no success field"}`))
	}))
	defer server.Close()

	_, err := NewRemoteRunner(server.URL).Invoke(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no success field")
}

func TestRateLimited(t *testing.T) {
	var calls atomic.Int32
	inner := RunnerFunc(func(ctx context.Context, code string) (*Result, error) {
		calls.Add(1)
		return &Result{Success: true}, nil
	})

	r := NewRateLimited(inner, 20, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := r.Invoke(context.Background(), "x")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, "unknown (max 20/s)", r.Describe())
}

func TestRateLimited_ContextCancelled(t *testing.T) {
	inner := RunnerFunc(func(ctx context.Context, code string) (*Result, error) {
		return &Result{Success: true}, nil
	})
	r := NewRateLimited(inner, 0.001, 1)

	_, err := r.Invoke(context.Background(), "x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Invoke(ctx, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a token that cannot arrive in time is a timeout")

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, err = r.Invoke(cancelled, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
