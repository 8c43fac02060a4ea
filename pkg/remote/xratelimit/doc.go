// Package xratelimit 提供按操作名限流的客户端侧滑动窗口限流器。
//
// # 设计理念
//
// 移动端同步场景的限流发生在客户端：在配额耗尽前主动让步，
// 避免触发服务端的硬限流与封禁。限流键是操作名（如 "ai_analysis"），
// 不是租户或调用方。
//
// 核心语义：
//   - 滑动窗口日志算法：窗口内每次放行记录一个时间戳，
//     任意尾随窗口内的放行次数不超过配额上限
//   - 窗口状态通过 xstore 持久化，进程重启后窗口仍然生效
//   - 存储失败降级为纯内存窗口，永不因持久化问题拒绝服务
//   - 可排队操作在配额耗尽时进入有界等待队列，按退避节奏
//     轮询直到出现空位或 context 取消
//
// # 快速开始
//
//	store, _ := xstore.NewFile("/data/ratelimit.json")
//	limiter, err := xratelimit.New(store)
//	if err != nil { ... }
//	defer limiter.Close()
//
//	err = limiter.Do(ctx, "ai_analysis", func(ctx context.Context) error {
//	    return callRemote(ctx)
//	})
//	if xratelimit.IsDenied(err) {
//	    var le *xratelimit.LimitError
//	    errors.As(err, &le) // le.RetryAfter 提示等待时长
//	}
//
// 多客户端共享配额的部署使用 NewRedis 切换到 redis_rate 后端，
// 接口不变。
//
// # 配置
//
// 规则表支持 JSON/YAML 文件加载（LoadConfig）与 fsnotify 热更新
// （WatchConfig）。未匹配任何规则的操作落入 Default 兜底规则。
package xratelimit
