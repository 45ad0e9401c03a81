// =============================================================================
// 文件: internal/transport/sniffer.go
// 描述: 入口重复帧嗅探器 - 时间片轮转布隆过滤器 (仅诊断，不丢帧)
// =============================================================================
package transport

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// 布隆过滤器参数
	snifferExpectedItems = 100000
	snifferFalsePositive = 0.0001

	// 时间片配置：4 片 x 30 秒 = 最近 2 分钟的入帧记忆
	snifferSliceDuration = 30 * time.Second
	snifferMaxSlices     = 4
)

// DupSniffer 重复帧嗅探器
// 记录入口原始帧的摘要并报告疑似重复，用于观察信道的重复/重传行为。
// 布隆过滤器有误报率，结论只作指标参考，协议正确性完全由序列号保证
type DupSniffer struct {
	slices     [snifferMaxSlices]*snifferSlice
	currentIdx int

	totalObserved uint64
	totalDupes    uint64

	mu sync.Mutex
}

// snifferSlice 时间片
type snifferSlice struct {
	bloom     *bloom.BloomFilter
	startTime time.Time
}

// NewDupSniffer 创建嗅探器
func NewDupSniffer() *DupSniffer {
	s := &DupSniffer{}
	now := time.Now()
	for i := 0; i < snifferMaxSlices; i++ {
		s.slices[i] = &snifferSlice{
			bloom:     bloom.NewWithEstimates(snifferExpectedItems, snifferFalsePositive),
			startTime: now,
		}
	}
	return s
}

// Observe 记录一帧并报告是否疑似重复
func (s *DupSniffer) Observe(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rotateLocked(time.Now())
	s.totalObserved++

	seen := false
	for _, slice := range s.slices {
		if slice.bloom.Test(frame) {
			seen = true
			break
		}
	}

	s.slices[s.currentIdx].bloom.Add(frame)

	if seen {
		s.totalDupes++
	}
	return seen
}

// rotateLocked 当前时间片过期时轮转到下一片并清空
func (s *DupSniffer) rotateLocked(now time.Time) {
	cur := s.slices[s.currentIdx]
	if now.Sub(cur.startTime) < snifferSliceDuration {
		return
	}
	s.currentIdx = (s.currentIdx + 1) % snifferMaxSlices
	next := s.slices[s.currentIdx]
	next.bloom.ClearAll()
	next.startTime = now
}

// Stats 观测总数与疑似重复数
func (s *DupSniffer) Stats() (observed, dupes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalObserved, s.totalDupes
}
