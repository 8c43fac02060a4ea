// Package xdedupe 提供在途请求去重：并发的相同请求共享同一结果。
//
// # 设计理念
//
// 同一 (method, endpoint, body) 指纹的请求在前一次尚未落定时重复
// 发起，只会产生一次真实网络调用，所有调用方看到完全相同的结果
// （成功或失败）。条目在结果落定的瞬间移除——无论成败——因此
// 下一次相同请求会重新发起真实调用。本包不缓存结果，只合并在途。
//
// 底层使用 [golang.org/x/sync/singleflight] 实现合并，
// [github.com/cespare/xxhash/v2] 计算请求指纹。
//
// # 适用范围
//
// 默认只对读操作去重。两个表面相同的写操作可能是调用方有意为之
// （如连续两次"再来一份"），因此写操作由调用方按需显式传入 key
// 选择加入，xdedupe 不自动识别。
//
// # 取消语义
//
// 生产调用运行在与首个调用方取消链解耦的 context 上：首个调用方
// 取消不会连累后续附着的调用方。每个调用方的等待各自受自己的
// ctx 约束，ctx 取消时该调用方立即返回 ctx.Err()，在途调用继续
// 直至自身截止时间落定并清除条目。
//
// # 使用方式
//
//	reg := xdedupe.New()
//	key := xdedupe.Key(http.MethodGet, "/profiles", nil)
//	v, err, shared := reg.Do(ctx, key, func(ctx context.Context) (any, error) {
//	    return executor.Execute(ctx, desc)
//	})
package xdedupe
