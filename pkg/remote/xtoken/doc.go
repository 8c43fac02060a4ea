// Package xtoken 提供访问令牌的缓存与按需刷新。
//
// # 设计理念
//
// 令牌的有效性判断是认证系统的知识，不是同步层的知识：
// Source 不解析令牌内容，有效性检查通过注入的 Valid 能力完成。
// 刷新只在被动触发时发生（执行器通知认证失败、调用方显式
// Refresh），从不主动后台续期。
//
// 并发的刷新请求通过 singleflight 合并：大量请求同时遭遇
// 401 时，认证服务只收到一次刷新调用。
//
// # 快速开始
//
//	src, err := xtoken.NewSource(refresher,
//	    xtoken.WithValid(auth.IsTokenValid),
//	)
//	if err != nil { ... }
//
//	exec, _ := xexec.New(baseURL, xexec.WithTokenProvider(src))
//	cancel := exec.OnAuthFailure(func(ctx context.Context, _ *xclassify.ClassifiedError) {
//	    _, _ = src.Refresh(ctx)
//	})
//	defer cancel()
package xtoken
