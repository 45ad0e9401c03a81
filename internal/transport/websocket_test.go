// =============================================================================
// 文件: internal/transport/websocket_test.go
// 描述: WebSocket 接入器测试
// =============================================================================
package transport

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// logSink 并发安全的日志缓冲
type logSink struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *logSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestWSListenerLogsListenError(t *testing.T) {
	sink := &logSink{}
	logger := zerolog.New(sink)

	// 非法端口使后台监听立刻失败
	l := NewWSListener("127.0.0.1:999999", "/swp", logger)
	if err := l.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	defer l.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(sink.String(), "WebSocket 接入器错误") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("监听失败应通过日志器记录: got %q", sink.String())
}
