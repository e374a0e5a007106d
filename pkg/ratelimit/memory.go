package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval 过期键清扫的最小间隔
const DefaultSweepInterval = 5 * time.Minute

// bucket 单个 (identity, endpoint) 键的请求时间戳序列
type bucket struct {
	// stamps 按时间递增排列，stamps[0] 为窗口内最早的请求
	stamps []time.Time
	// window 该键最近一次使用的窗口时长，清扫时据此判断是否过期
	window time.Duration
}

// MemoryRateLimiter 进程内滑动窗口限流器。
// 窗口随当前时间连续前移，过期时间戳在每次检查时惰性剔除；
// 进程重启即丢失计数，这是文档化的取舍而非缺陷。
type MemoryRateLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*bucket
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

// NewMemoryRateLimiter 创建进程内限流器
func NewMemoryRateLimiter(sweepInterval time.Duration) *MemoryRateLimiter {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &MemoryRateLimiter{
		buckets:       make(map[string]*bucket),
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// Allow checks if the request is allowed
func (m *MemoryRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{}
		m.buckets[key] = b
	}
	b.window = limit.Period

	// 滑动窗口：只保留 cutoff 之后的时间戳
	cutoff := now.Add(-limit.Period)
	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept

	if len(b.stamps) >= limit.Rate {
		// 最早的请求离开窗口后才有新的配额
		reset := b.stamps[0].Add(limit.Period).Sub(now)
		if reset < 0 {
			reset = 0
		}
		m.maybeSweep(now)
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAfter: reset,
			RetryAfter: reset,
		}, nil
	}

	b.stamps = append(b.stamps, now)
	m.maybeSweep(now)

	return &Result{
		Allowed:    true,
		Remaining:  limit.Rate - len(b.stamps),
		ResetAfter: limit.Period,
		RetryAfter: 0,
	}, nil
}

// maybeSweep 机会式清扫：最多每 sweepInterval 执行一次，
// 调用方持有 m.mu，天然不会并发执行；
// 仅删除所有时间戳都已滑出各自窗口的键。
func (m *MemoryRateLimiter) maybeSweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepInterval {
		return
	}
	m.lastSweep = now

	for key, b := range m.buckets {
		if len(b.stamps) == 0 {
			delete(m.buckets, key)
			continue
		}
		newest := b.stamps[len(b.stamps)-1]
		if !newest.After(now.Add(-b.window)) {
			delete(m.buckets, key)
		}
	}
}
