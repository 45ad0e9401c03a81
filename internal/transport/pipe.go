// =============================================================================
// 文件: internal/transport/pipe.go
// 描述: 进程内信道适配器对 - 可注入丢包/重复/损坏故障，用于仿真与测试
// =============================================================================
package transport

import (
	"sync"
	"time"
)

// SendHook 故障注入钩子
// 输入待发送的一帧，返回实际投递到对端的帧序列：
// 返回 nil 表示丢弃；返回两份相同帧表示信道重复；
// 返回被篡改的帧表示信道损坏。默认原样投递
type SendHook func(frame []byte) [][]byte

// PipeAdapter 进程内信道适配器
// NewPipePair 返回互相连接的一对；两个端点各持一端即可
// 在单进程内仿真一条不可靠信道
type PipeAdapter struct {
	in   chan []byte
	peer *PipeAdapter

	hookMu sync.RWMutex
	hook   SendHook

	closed    chan struct{}
	closeOnce sync.Once
}

// NewPipePair 创建互联的信道适配器对
func NewPipePair(queueLen int) (*PipeAdapter, *PipeAdapter) {
	if queueLen <= 0 {
		queueLen = 256
	}
	a := &PipeAdapter{in: make(chan []byte, queueLen), closed: make(chan struct{})}
	b := &PipeAdapter{in: make(chan []byte, queueLen), closed: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// SetSendHook 设置本端出向的故障注入钩子
func (p *PipeAdapter) SetSendHook(hook SendHook) {
	p.hookMu.Lock()
	defer p.hookMu.Unlock()
	p.hook = hook
}

// SendRaw 发送一帧 (经钩子决定投递行为)
func (p *PipeAdapter) SendRaw(data []byte) error {
	select {
	case <-p.closed:
		return ErrAdapterClosed
	default:
	}

	frame := make([]byte, len(data))
	copy(frame, data)

	p.hookMu.RLock()
	hook := p.hook
	p.hookMu.RUnlock()

	frames := [][]byte{frame}
	if hook != nil {
		frames = hook(frame)
	}

	for _, f := range frames {
		select {
		case p.peer.in <- f:
		case <-p.peer.closed:
			return ErrAdapterClosed
		default:
			// 队列满等同信道拥塞丢包
		}
	}
	return nil
}

// ReceiveRaw 有界等待接收一帧
func (p *PipeAdapter) ReceiveRaw(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.closed:
		return nil, ErrAdapterClosed
	case <-timer.C:
		return nil, ErrRecvTimeout
	case frame := <-p.in:
		return frame, nil
	}
}

// Close 关闭本端
func (p *PipeAdapter) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	return nil
}
