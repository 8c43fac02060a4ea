// Package xexec 提供面向不可靠远程存储的请求执行器：
// 单次逻辑操作 = 可取消的网络调用 + 截止时间 + 错误分类 + 退避重试。
//
// # 设计理念
//
// 执行器把"一次操作最终成功或给出已分类的终态错误"作为唯一契约：
//
//   - 每次尝试受操作描述符的截止时间约束，超时即中止并归为 timeout
//   - 失败经 xclassify 分类，retryable 位是重试的唯一依据
//   - 可重试错误按 xbackoff 策略等待后重试，默认最多 3 次尝试
//   - 不可重试错误首次出现即返回，绝不浪费预算
//   - 耗尽预算后返回最后一次产生的 ClassifiedError
//
// 底层重试循环使用 [avast/retry-go/v5]，与 xclassify/xbackoff
// 的接口对接。
//
// # 认证刷新通知
//
// 终态 auth 错误通过显式注册的观察者回调通知外部认证协作方
// （OnAuthFailure），同一冷却窗口（默认 5s）内至多通知一次，
// 避免大量并发失败调用引发通知风暴。执行器自身从不主动刷新
// 令牌，也不解析令牌内容。
//
// # 可选能力
//
//   - WithDebugLog：有界内存环形缓冲记录每次尝试（诊断用）
//   - WithReadCache：GET 响应的 TTL 缓存，命中时信封 Cached=true
//   - WithBreaker：熔断器保护（sony/gobreaker），熔断开启时
//     失败归为 network（可重试），调用方按远端不健康处理
//
// # 使用方式
//
//	exec, err := xexec.New("https://api.example.com",
//	    xexec.WithAPIKey(apiKey),
//	    xexec.WithTokenProvider(tokens),
//	)
//	env, err := exec.Execute(ctx, xexec.Descriptor{
//	    Method:    http.MethodPost,
//	    Path:      "/rest/v1/workouts",
//	    Body:      payload,
//	    Operation: "save_workout",
//	    Class:     xexec.ClassWrite,
//	})
package xexec
