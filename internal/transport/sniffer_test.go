// =============================================================================
// 文件: internal/transport/sniffer_test.go
// 描述: 重复帧嗅探器测试
// =============================================================================
package transport

import (
	"fmt"
	"testing"
)

func TestDupSnifferDetectsRepeat(t *testing.T) {
	s := NewDupSniffer()

	frame := []byte("frame-under-test")
	if s.Observe(frame) {
		t.Error("首次观测不应报告重复")
	}
	if !s.Observe(frame) {
		t.Error("二次观测应报告重复")
	}

	observed, dupes := s.Stats()
	if observed != 2 {
		t.Errorf("观测计数错误: got %d, want 2", observed)
	}
	if dupes != 1 {
		t.Errorf("重复计数错误: got %d, want 1", dupes)
	}
}

func TestDupSnifferDistinctFrames(t *testing.T) {
	s := NewDupSniffer()

	// 误报率配置为万分之一，1000 个不同帧不应出现成规模的误报
	falsePositives := 0
	for i := 0; i < 1000; i++ {
		if s.Observe([]byte(fmt.Sprintf("unique-frame-%d", i))) {
			falsePositives++
		}
	}
	if falsePositives > 2 {
		t.Errorf("误报过多: %d", falsePositives)
	}
}
