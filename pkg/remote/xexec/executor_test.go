package xexec

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/synckit/pkg/remote/xclassify"
	"github.com/omeyang/synckit/pkg/resilience/xbackoff"
)

func newTestExecutor(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Executor, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBackoff(xbackoff.NewNone())}, opts...)
	exec, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return exec, srv
}

func TestExecute_Success(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","name":"alex"}`))
	})

	env, err := exec.Execute(context.Background(), Descriptor{
		Method:    http.MethodGet,
		Path:      "/rest/v1/profiles",
		Operation: "fetch_profile",
		Class:     ClassRead,
	})
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Nil(t, env.Error)
	assert.False(t, env.Cached)

	var got struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, env.DecodeData(&got))
	assert.Equal(t, "p1", got.ID)
}

func TestExecute_NoContent(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	env, err := exec.Execute(context.Background(), Descriptor{
		Method: http.MethodDelete,
		Path:   "/rest/v1/meals",
		Class:  ClassWrite,
	})
	require.NoError(t, err)
	assert.Nil(t, env.Data, "空响应产生 nil 载荷且无错误")
	assert.Nil(t, env.Error)
}

func TestExecute_NonRetryableFailsFast(t *testing.T) {
	// 不可重试错误首次出现即返回，不消耗重试预算
	var calls atomic.Int32
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	env, err := exec.Execute(context.Background(), Descriptor{
		Method: http.MethodGet,
		Path:   "/rest/v1/missing",
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var ce *xclassify.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, xclassify.KindNotFound, ce.Kind)
	assert.False(t, ce.Retryable())
	require.NotNil(t, env)
	assert.Same(t, ce, env.Error)
}

func TestExecute_RetryableExhaustsAttempts(t *testing.T) {
	// 可重试错误重试至预算耗尽，返回最后一次产生的分类错误
	var calls atomic.Int32
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"db overloaded"}`, http.StatusServiceUnavailable)
	})

	_, err := exec.Execute(context.Background(), Descriptor{
		Method:    http.MethodGet,
		Path:      "/rest/v1/workouts",
		Operation: "fetch_workouts",
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "默认 3 次尝试")

	var ce *xclassify.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, xclassify.KindServerError, ce.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, ce.StatusCode)
	assert.Equal(t, "db overloaded", ce.Message, "错误体细节被提取")
}

func TestExecute_RecoversAfterRetry(t *testing.T) {
	var calls atomic.Int32
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	env, err := exec.Execute(context.Background(), Descriptor{
		Method: http.MethodGet,
		Path:   "/rest/v1/plans",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.NotNil(t, env.Data)
}

func TestExecute_TimeoutClassified(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}, WithMaxAttempts(1))

	_, err := exec.Execute(context.Background(), Descriptor{
		Method:  http.MethodGet,
		Path:    "/rest/v1/slow",
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, xclassify.KindTimeout, xclassify.KindOf(err))
	assert.True(t, xclassify.IsRetryable(err))
}

func TestExecute_NetworkErrorClassified(t *testing.T) {
	exec, err := New("http://127.0.0.1:1", // 无服务监听
		WithBackoff(xbackoff.NewNone()),
		WithMaxAttempts(2),
	)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), Descriptor{
		Method:  http.MethodGet,
		Path:    "/x",
		Timeout: time.Second,
	})
	require.Error(t, err)
	assert.Equal(t, xclassify.KindNetwork, xclassify.KindOf(err))
}

func TestExecute_Headers(t *testing.T) {
	var gotHeaders http.Header
	var gotQuery string
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	},
		WithAPIKey("anon-key"),
		WithTokenProvider(staticToken("jwt-token")),
	)

	_, err := exec.Execute(context.Background(), Descriptor{
		Method:     http.MethodPost,
		Path:       "/rest/v1/profiles",
		Body:       []byte(`{"name":"alex"}`),
		Operation:  "upsert_profile",
		Class:      ClassWrite,
		Upsert:     true,
		OnConflict: "user_id",
	})
	require.NoError(t, err)

	assert.Equal(t, "anon-key", gotHeaders.Get("apikey"))
	assert.Equal(t, "Bearer jwt-token", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "return=representation,resolution=merge-duplicates", gotHeaders.Get("Prefer"))
	assert.Contains(t, gotQuery, "on_conflict=user_id")
}

func TestExecute_MinimalReturn(t *testing.T) {
	var prefer string
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		prefer = r.Header.Get("Prefer")
		_, _ = w.Write([]byte(`ignored`))
	})

	env, err := exec.Execute(context.Background(), Descriptor{
		Method:  http.MethodPost,
		Path:    "/rest/v1/logs",
		Body:    []byte(`{}`),
		Minimal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "return=minimal", prefer)
	assert.Nil(t, env.Data)
}

func TestExecute_AuthNotification(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithAuthCooldown(time.Hour))

	var notified atomic.Int32
	cancel := exec.OnAuthFailure(func(ctx context.Context, cerr *xclassify.ClassifiedError) {
		assert.Equal(t, xclassify.KindAuth, cerr.Kind)
		notified.Add(1)
	})
	defer cancel()

	desc := Descriptor{Method: http.MethodGet, Path: "/rest/v1/profiles"}

	_, err := exec.Execute(context.Background(), desc)
	require.Error(t, err)
	assert.Eventually(t, func() bool { return notified.Load() == 1 }, time.Second, 5*time.Millisecond)

	// 冷却窗口内的第二次终态 auth 错误不再通知
	_, err = exec.Execute(context.Background(), desc)
	require.Error(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), notified.Load())
}

func TestExecute_AuthNotificationCooldownExpires(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, WithAuthCooldown(30*time.Millisecond))

	var notified atomic.Int32
	cancel := exec.OnAuthFailure(func(ctx context.Context, cerr *xclassify.ClassifiedError) {
		notified.Add(1)
	})
	defer cancel()

	desc := Descriptor{Method: http.MethodGet, Path: "/x"}
	_, _ = exec.Execute(context.Background(), desc)
	time.Sleep(60 * time.Millisecond)
	_, _ = exec.Execute(context.Background(), desc)

	assert.Eventually(t, func() bool { return notified.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestExecute_UnregisteredObserverNotCalled(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var notified atomic.Int32
	cancel := exec.OnAuthFailure(func(ctx context.Context, cerr *xclassify.ClassifiedError) {
		notified.Add(1)
	})
	cancel()

	_, _ = exec.Execute(context.Background(), Descriptor{Method: http.MethodGet, Path: "/x"})
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, notified.Load())
}

func TestExecute_TokenProviderFailure(t *testing.T) {
	var calls atomic.Int32
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, WithTokenProvider(failingToken{}))

	_, err := exec.Execute(context.Background(), Descriptor{
		Method: http.MethodGet,
		Path:   "/rest/v1/profiles",
	})
	require.Error(t, err)
	assert.Zero(t, calls.Load(), "令牌不可用时不发起网络调用")
	assert.Equal(t, xclassify.KindAuth, xclassify.KindOf(err))
	assert.ErrorIs(t, err, ErrTokenUnavailable)
}

func TestExecute_ReadCache(t *testing.T) {
	var calls atomic.Int32
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"v":1}`))
	}, WithReadCache(16, time.Minute))

	desc := Descriptor{Method: http.MethodGet, Path: "/rest/v1/plans", Operation: "fetch_plans"}

	first, err := exec.Execute(context.Background(), desc)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := exec.Execute(context.Background(), desc)
	require.NoError(t, err)
	assert.True(t, second.Cached, "第二次命中缓存")
	assert.Equal(t, int32(1), calls.Load(), "只发起一次网络调用")
	assert.Equal(t, json.RawMessage(`{"v":1}`), second.Data)

	// 写操作不经过缓存
	_, err = exec.Execute(context.Background(), Descriptor{
		Method: http.MethodPost, Path: "/rest/v1/plans", Body: []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecute_Breaker(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	},
		WithMaxAttempts(1),
		WithBreaker(gobreaker.Settings{
			Name: "test",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 2
			},
			Timeout: time.Hour,
		}),
	)

	desc := Descriptor{Method: http.MethodGet, Path: "/x"}

	// 两次失败后熔断开启
	_, err := exec.Execute(context.Background(), desc)
	assert.Equal(t, xclassify.KindServerError, xclassify.KindOf(err))
	_, err = exec.Execute(context.Background(), desc)
	assert.Equal(t, xclassify.KindServerError, xclassify.KindOf(err))

	// 熔断开启期间归为 network（可重试/可入离线队列）
	_, err = exec.Execute(context.Background(), desc)
	require.Error(t, err)
	assert.Equal(t, xclassify.KindNetwork, xclassify.KindOf(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecute_DebugLog(t *testing.T) {
	var calls atomic.Int32
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, WithDebugLog(10))

	_, err := exec.Execute(context.Background(), Descriptor{
		Method:    http.MethodGet,
		Path:      "/rest/v1/meals",
		Operation: "fetch_meals",
	})
	require.NoError(t, err)

	recs := exec.DebugRecords()
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Attempt)
	assert.Equal(t, http.StatusBadGateway, recs[0].StatusCode)
	assert.NotEmpty(t, recs[0].Err)
	assert.Equal(t, 2, recs[1].Attempt)
	assert.Equal(t, http.StatusOK, recs[1].StatusCode)
	assert.Empty(t, recs[1].Err)
	assert.Equal(t, "fetch_meals", recs[0].Operation)
}

func TestExecute_InvalidInput(t *testing.T) {
	exec, _ := newTestExecutor(t, func(w http.ResponseWriter, r *http.Request) {})

	t.Run("NilContext", func(t *testing.T) {
		//nolint:staticcheck // 故意传 nil 验证防护
		_, err := exec.Execute(nil, Descriptor{Method: http.MethodGet, Path: "/x"})
		assert.ErrorIs(t, err, ErrNilContext)
	})

	t.Run("MissingMethod", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), Descriptor{Path: "/x"})
		assert.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("MissingPath", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), Descriptor{Method: http.MethodGet})
		assert.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("NilExecutor", func(t *testing.T) {
		var e *Executor
		_, err := e.Execute(context.Background(), Descriptor{Method: http.MethodGet, Path: "/x"})
		assert.ErrorIs(t, err, ErrNilExecutor)
	})
}

func TestNew_EmptyBaseURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyBaseURL)
	_, err = New("   ")
	assert.ErrorIs(t, err, ErrEmptyBaseURL)
}

func TestOpClass_DefaultTimeout(t *testing.T) {
	assert.Equal(t, 20*time.Second, ClassRead.DefaultTimeout())
	assert.Equal(t, 25*time.Second, ClassWrite.DefaultTimeout())
	assert.Equal(t, 60*time.Second, ClassUpload.DefaultTimeout())
	assert.Equal(t, 30*time.Second, ClassRPC.DefaultTimeout())
	assert.Equal(t, 20*time.Second, OpClass("bogus").DefaultTimeout())

	d := Descriptor{Class: ClassUpload, Timeout: 5 * time.Second}
	assert.Equal(t, 5*time.Second, d.EffectiveTimeout(), "显式 Timeout 覆盖类别默认值")
}

// staticToken 固定令牌提供方。
type staticToken string

func (s staticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// failingToken 恒失败的令牌提供方。
type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) {
	return "", errors.New("session expired")
}
