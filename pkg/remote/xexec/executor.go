package xexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/synckit/pkg/remote/xclassify"
	"github.com/omeyang/synckit/pkg/resilience/xbackoff"
)

// TokenProvider 提供当前的 Bearer 访问令牌。
// 由外部认证协作方实现（如 xtoken.Source）。
type TokenProvider interface {
	// Token 返回当前令牌。无可用令牌时返回错误。
	Token(ctx context.Context) (string, error)
}

// attemptResult 单次尝试的原始结果。
type attemptResult struct {
	status int
	body   []byte
}

// Executor 请求执行器。
// 所有方法都是并发安全的。必须通过 New 创建。
type Executor struct {
	baseURL     string
	client      *http.Client
	apiKey      string
	tokens      TokenProvider
	backoff     xbackoff.Policy
	maxAttempts int
	logger      *slog.Logger
	debugLog    *attemptLog
	auth        authNotifier
	cache       *readCache
	breaker     *gobreaker.CircuitBreaker[*attemptResult]
}

// New 创建执行器。
// baseURL 为远程存储的根地址（如 "https://api.example.com"）。
func New(baseURL string, opts ...Option) (*Executor, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	e := &Executor{
		baseURL:     baseURL,
		client:      &http.Client{},
		backoff:     xbackoff.NewExponential(),
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		auth:        newAuthNotifier(DefaultAuthCooldown),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Execute 执行一次逻辑操作。
//
// 返回值契约：
//   - 成功：(*Envelope{Data, ...}, nil)，无内容响应 Data 为 nil
//   - 失败：(*Envelope{Error, ...}, err)，err 的错误链中含
//     最后一次产生的 *xclassify.ClassifiedError
//
// 可重试错误在内部按退避策略重试至预算耗尽；不可重试错误
// 首次出现即返回。终态 auth 错误触发一次认证刷新通知（受冷却
// 窗口约束）。
func (e *Executor) Execute(ctx context.Context, desc Descriptor) (*Envelope, error) {
	if e == nil {
		return nil, ErrNilExecutor
	}
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	// 读缓存：仅 GET 且要求回显时生效
	cacheKey := e.cacheKey(desc)
	if cacheKey != "" {
		if env, ok := e.cache.get(cacheKey); ok {
			return env, nil
		}
	}

	var attempt atomic.Int32
	res, err := retry.NewWithData[*attemptResult](e.buildRetryOptions(ctx, desc)...).Do(func() (*attemptResult, error) {
		n := int(attempt.Add(1))
		return e.attempt(ctx, desc, n)
	})

	duration := time.Since(start)

	if err != nil {
		ce := xclassify.Classify(err, 0)
		if ce.Kind == xclassify.KindAuth {
			e.auth.notify(ctx, ce, e.logger)
		}
		env := &Envelope{
			Error:     ce,
			Timestamp: time.Now(),
			Duration:  duration,
		}
		return env, ce
	}

	env := &Envelope{
		Timestamp: time.Now(),
		Duration:  duration,
	}
	if res != nil && len(res.body) > 0 {
		env.Data = res.body
	}

	if cacheKey != "" {
		e.cache.put(cacheKey, env)
	}
	return env, nil
}

// OnAuthFailure 注册认证失败观察者。
//
// 终态 auth 错误在冷却窗口内至多触发一次回调，回调在独立
// goroutine 中执行。返回的 cancel 函数用于注销。
//
// 设计决策: 显式注册而非全局广播——多个独立执行器实例不会
// 互相串扰，测试中也无需清理全局状态。
func (e *Executor) OnAuthFailure(fn func(ctx context.Context, cerr *xclassify.ClassifiedError)) (cancel func()) {
	return e.auth.register(fn)
}

// DebugRecords 返回诊断日志快照（时间序）。
// 未启用 WithDebugLog 时返回 nil。
func (e *Executor) DebugRecords() []AttemptRecord {
	if e == nil || e.debugLog == nil {
		return nil
	}
	return e.debugLog.records()
}

// buildRetryOptions 构建 retry-go 的选项。
// 重试条件完全由 xclassify 的 retryable 位驱动。
func (e *Executor) buildRetryOptions(ctx context.Context, desc Descriptor) []retry.Option {
	opts := make([]retry.Option, 0, 6)

	opts = append(opts, retry.Context(ctx))
	opts = append(opts, retry.Attempts(safeIntToUint(e.maxAttempts)))

	opts = append(opts, retry.RetryIf(func(err error) bool {
		if !retry.IsRecoverable(err) {
			return false
		}
		return xclassify.IsRetryable(err)
	}))

	opts = append(opts, retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
		// retry-go v5 中 DelayType 的 n 从 1 开始，与 Policy.NextDelay 一致
		return e.backoff.NextDelay(safeUintToInt(n))
	}))

	opts = append(opts, retry.OnRetry(func(n uint, err error) {
		e.logger.Debug("xexec: retrying operation",
			slog.String("operation", desc.Operation),
			slog.Uint64("attempt", uint64(n)+1),
			slog.Any("error", err),
		)
	}))

	// 只返回最后一个错误，调用方看到的是最后一次产生的分类错误
	opts = append(opts, retry.LastErrorOnly(true))

	return opts
}

// attempt 执行一次尝试并记录诊断信息。
func (e *Executor) attempt(ctx context.Context, desc Descriptor, n int) (*attemptResult, error) {
	start := time.Now()
	res, err := e.doAttempt(ctx, desc)
	elapsed := time.Since(start)

	if e.debugLog != nil {
		rec := AttemptRecord{
			Operation: desc.Operation,
			Method:    desc.Method,
			Path:      desc.Path,
			Attempt:   n,
			Duration:  elapsed,
			At:        start,
		}
		if res != nil {
			rec.StatusCode = res.status
		}
		if err != nil {
			rec.Err = err.Error()
			var ce *xclassify.ClassifiedError
			if errors.As(err, &ce) && ce != nil {
				rec.StatusCode = ce.StatusCode
			}
		}
		e.debugLog.add(rec)
	}

	return res, err
}

// doAttempt 执行一次尝试，可选地经过熔断器。
func (e *Executor) doAttempt(ctx context.Context, desc Descriptor) (*attemptResult, error) {
	if e.breaker == nil {
		return e.roundTrip(ctx, desc)
	}

	res, err := e.breaker.Execute(func() (*attemptResult, error) {
		return e.roundTrip(ctx, desc)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// 熔断开启视为远端不健康：归为 network（可重试），
		// 退避后重试或由调用方转入离线队列。
		return nil, &xclassify.ClassifiedError{
			Kind:    xclassify.KindNetwork,
			Message: "circuit breaker open",
			Err:     err,
		}
	}
	return res, err
}

// roundTrip 发起一次受截止时间约束的真实网络调用。
// 所有失败路径都返回 *xclassify.ClassifiedError。
func (e *Executor) roundTrip(ctx context.Context, desc Descriptor) (*attemptResult, error) {
	actx, cancel := context.WithTimeout(ctx, desc.EffectiveTimeout())
	defer cancel()

	u, err := e.buildURL(desc)
	if err != nil {
		return nil, xclassify.Classify(err, 0)
	}

	var bodyReader io.Reader
	if desc.Body != nil {
		bodyReader = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(actx, desc.Method, u, bodyReader)
	if err != nil {
		return nil, xclassify.Classify(err, 0)
	}

	if err := e.setHeaders(actx, req, desc); err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		// 超时/连接层失败在此分类：url.Error 包装了底层原因
		return nil, xclassify.Classify(err, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, xclassify.Classify(err, 0)
	}

	if resp.StatusCode >= 400 {
		return nil, e.classifyResponse(resp.StatusCode, body)
	}

	if resp.StatusCode == http.StatusNoContent || len(body) == 0 || desc.Minimal {
		return &attemptResult{status: resp.StatusCode}, nil
	}
	return &attemptResult{status: resp.StatusCode, body: body}, nil
}

// buildURL 拼接请求地址，Upsert 时附加 on_conflict 目标列。
func (e *Executor) buildURL(desc Descriptor) (string, error) {
	path := desc.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	full := e.baseURL + path
	if _, err := url.Parse(full); err != nil {
		return "", fmt.Errorf("%w: bad path %q: %w", ErrInvalidDescriptor, desc.Path, err)
	}

	query := url.Values{}
	for k, vs := range desc.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	if desc.Upsert && desc.OnConflict != "" {
		query.Set("on_conflict", desc.OnConflict)
	}
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full, nil
}

// setHeaders 设置远程存储契约要求的请求头。
func (e *Executor) setHeaders(ctx context.Context, req *http.Request, desc Descriptor) error {
	if desc.Body != nil {
		ct := desc.ContentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}

	if e.apiKey != "" {
		req.Header.Set("apikey", e.apiKey)
	}

	if e.tokens != nil {
		tok, err := e.tokens.Token(ctx)
		if err != nil {
			// 拿不到令牌等价于认证失败：不可重试，触发刷新通知
			return &xclassify.ClassifiedError{
				Kind:    xclassify.KindAuth,
				Message: "token unavailable",
				Err:     fmt.Errorf("%w: %w", ErrTokenUnavailable, err),
			}
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	prefer := "return=representation"
	if desc.Minimal {
		prefer = "return=minimal"
	}
	if desc.Upsert {
		prefer += ",resolution=merge-duplicates"
	}
	req.Header.Set("Prefer", prefer)

	return nil
}

// classifyResponse 按状态码分类错误响应，并尽力提取错误体细节。
func (e *Executor) classifyResponse(status int, body []byte) *xclassify.ClassifiedError {
	ce := xclassify.Classify(errors.New(http.StatusText(status)), status)

	if len(body) > 0 {
		var details map[string]any
		if json.Unmarshal(body, &details) == nil {
			ce.Details = details
			if msg, ok := details["message"].(string); ok && msg != "" {
				ce.Message = msg
			}
		}
	}
	return ce
}

// safeIntToUint 将 int 安全转换为 uint，负数返回 0。
func safeIntToUint(n int) uint {
	if n <= 0 {
		return 0
	}
	return uint(n)
}

// safeUintToInt 将 uint 安全转换为 int，超界截断。
func safeUintToInt(n uint) int {
	const maxInt = int(^uint(0) >> 1)
	if n > uint(maxInt) {
		return maxInt
	}
	return int(n)
}
