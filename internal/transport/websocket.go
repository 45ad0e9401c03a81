// =============================================================================
// 文件: internal/transport/websocket.go
// 描述: WebSocket 信道适配器 - 二进制消息模拟数据报，CDN 友好
// =============================================================================
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSAdapter WebSocket 信道适配器
// 每条二进制消息视为一帧数据报；WebSocket 本身可靠，
// 但上层协议不依赖这一点，语义上仍按不可靠信道对待
type WSAdapter struct {
	conn *websocket.Conn

	// gorilla/websocket 要求写操作串行
	writeMu sync.Mutex

	closed int32
}

// DialWS 主动连接 WebSocket 服务端
func DialWS(url string) (*WSAdapter, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("WebSocket 连接失败: %w", err)
	}
	return &WSAdapter{conn: conn}, nil
}

// newWSAdapter 包装一条已建立的 WebSocket 连接
func newWSAdapter(conn *websocket.Conn) *WSAdapter {
	return &WSAdapter{conn: conn}
}

// SendRaw 发送一帧
func (a *WSAdapter) SendRaw(data []byte) error {
	if atomic.LoadInt32(&a.closed) != 0 {
		return ErrAdapterClosed
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteMessage(websocket.BinaryMessage, data)
}

// ReceiveRaw 有界等待接收一帧
func (a *WSAdapter) ReceiveRaw(timeout time.Duration) ([]byte, error) {
	if atomic.LoadInt32(&a.closed) != 0 {
		return nil, ErrAdapterClosed
	}

	if err := a.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	msgType, data, err := a.conn.ReadMessage()
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, ErrRecvTimeout
		}
		if atomic.LoadInt32(&a.closed) != 0 {
			return nil, ErrAdapterClosed
		}
		return nil, err
	}

	if msgType != websocket.BinaryMessage {
		// 非二进制消息等同信道噪声
		return nil, ErrRecvTimeout
	}
	return data, nil
}

// Close 关闭连接
func (a *WSAdapter) Close() error {
	if !atomic.CompareAndSwapInt32(&a.closed, 0, 1) {
		return nil
	}
	a.writeMu.Lock()
	a.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	a.writeMu.Unlock()
	return a.conn.Close()
}

// =============================================================================
// 服务端接入
// =============================================================================

// WSListener WebSocket 接入器
// HTTP 升级入站连接并包装成适配器，交给 Accept 的调用方
type WSListener struct {
	addr string
	path string
	log  zerolog.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
	acceptCh   chan *WSAdapter
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewWSListener 创建接入器
func NewWSListener(addr, path string, log zerolog.Logger) *WSListener {
	return &WSListener{
		addr:     addr,
		path:     path,
		log:      log,
		acceptCh: make(chan *WSAdapter, 8),
		stopCh:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Start 启动 HTTP 服务
func (l *WSListener) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, l.handleUpgrade)

	l.httpServer = &http.Server{
		Addr:         l.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := l.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.log.Error().Err(err).Str("addr", l.addr).Msg("WebSocket 接入器错误")
		}
	}()
	return nil
}

// handleUpgrade 升级入站连接
func (l *WSListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	select {
	case l.acceptCh <- newWSAdapter(conn):
	case <-l.stopCh:
		conn.Close()
	default:
		// 接入队列已满，拒绝
		conn.Close()
	}
}

// Accept 等待下一条入站连接
func (l *WSListener) Accept(ctx context.Context) (*WSAdapter, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.stopCh:
		return nil, ErrAdapterClosed
	case a := <-l.acceptCh:
		return a, nil
	}
}

// Close 停止接入器
func (l *WSListener) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		if l.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			l.httpServer.Shutdown(ctx)
		}
	})
	return nil
}
