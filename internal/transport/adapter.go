// =============================================================================
// 文件: internal/transport/adapter.go
// 描述: 信道适配器边界 - 不可靠数据报信道的统一抽象
// =============================================================================
package transport

import (
	"fmt"
	"time"
)

// 适配器层错误
var (
	// ErrRecvTimeout 有界等待到期，在协议层等同于没有包到达
	ErrRecvTimeout = fmt.Errorf("接收超时")
	// ErrAdapterClosed 底层信道已释放
	ErrAdapterClosed = fmt.Errorf("信道已关闭")
)

// Adapter 不可靠数据报信道
// 信道可能丢弃、延迟、重复或损坏整帧，但单帧字节不会乱序：
// 一帧要么完整到达要么完全不到达
type Adapter interface {
	// SendRaw 发送一帧原始字节
	SendRaw(data []byte) error

	// ReceiveRaw 接收一帧原始字节
	// 必须在 timeout 内返回，超时返回 ErrRecvTimeout，
	// 保证上层在没有流量时也能定期检查重传时钟与关闭信号
	ReceiveRaw(timeout time.Duration) ([]byte, error)

	// Close 释放底层信道资源
	Close() error
}
