// =============================================================================
// 文件: internal/transport/udp.go
// 描述: UDP 信道适配器 - 单对端数据报信道
// =============================================================================
package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// 套接字缓冲区限制
	udpMinBufferSize     = 256 * 1024
	udpMaxBufferSize     = 8 * 1024 * 1024
	udpDefaultBufferSize = 1024 * 1024

	// 单帧读缓冲 (覆盖最大 UDP 载荷)
	udpReadBufferLen = 64 * 1024
)

// UDPAdapter UDP 信道适配器
// remote 为空时进入被动模式：从第一个入帧学习对端地址
type UDPAdapter struct {
	conn *net.UDPConn

	remoteMu sync.RWMutex
	remote   *net.UDPAddr

	closed int32
}

// NewUDPAdapter 创建 UDP 适配器
// local 为本地监听地址，remote 为对端地址 (可为空，被动学习)
func NewUDPAdapter(local, remote string) (*UDPAdapter, error) {
	localAddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("解析本地地址失败: %w", err)
	}

	var remoteAddr *net.UDPAddr
	if remote != "" {
		remoteAddr, err = net.ResolveUDPAddr("udp", remote)
		if err != nil {
			return nil, fmt.Errorf("解析对端地址失败: %w", err)
		}
	}

	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("监听 UDP 失败: %w", err)
	}

	// 设置失败不致命，内核会回退到系统默认值
	conn.SetReadBuffer(clampUDPBuffer(udpDefaultBufferSize))
	conn.SetWriteBuffer(clampUDPBuffer(udpDefaultBufferSize))

	return &UDPAdapter{
		conn:   conn,
		remote: remoteAddr,
	}, nil
}

// clampUDPBuffer 限制缓冲区大小在合理范围内
func clampUDPBuffer(size int) int {
	if size < udpMinBufferSize {
		return udpMinBufferSize
	}
	if size > udpMaxBufferSize {
		return udpMaxBufferSize
	}
	return size
}

// SendRaw 发送一帧
func (a *UDPAdapter) SendRaw(data []byte) error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return ErrAdapterClosed
	}

	a.remoteMu.RLock()
	remote := a.remote
	a.remoteMu.RUnlock()

	if remote == nil {
		// 被动模式下还没学到对端地址，发送等同丢包
		return fmt.Errorf("对端地址未知")
	}

	_, err := a.conn.WriteToUDP(data, remote)
	return err
}

// ReceiveRaw 有界等待接收一帧
func (a *UDPAdapter) ReceiveRaw(timeout time.Duration) ([]byte, error) {
	if atomic.LoadInt32(&a.closed) != 0 {
		return nil, ErrAdapterClosed
	}

	if err := a.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, udpReadBufferLen)
	n, from, err := a.conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, ErrRecvTimeout
		}
		if atomic.LoadInt32(&a.closed) != 0 {
			return nil, ErrAdapterClosed
		}
		return nil, err
	}

	// 被动模式：学习对端地址
	a.remoteMu.Lock()
	if a.remote == nil {
		a.remote = from
	}
	a.remoteMu.Unlock()

	frame := make([]byte, n)
	copy(frame, buf[:n])
	return frame, nil
}

// Close 释放套接字
func (a *UDPAdapter) Close() error {
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return nil
	}
	return a.conn.Close()
}

// LocalAddr 本地地址
func (a *UDPAdapter) LocalAddr() *net.UDPAddr {
	return a.conn.LocalAddr().(*net.UDPAddr)
}
