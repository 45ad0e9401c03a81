// =============================================================================
// 文件: internal/transport/swp_endpoint.go
// 描述: SWP 滑动窗口可靠传输 - 端点 (全双工组合 / 生命周期管理)
// =============================================================================
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Endpoint SWP 端点
// 在同一个信道适配器上组合一个发送引擎和一个接收引擎 (全双工)：
// 读循环按标志位把入帧分发给两个引擎，重传循环驱动发送引擎的时钟
type Endpoint struct {
	adapter Adapter
	cfg     *EndpointConfig
	space   Space

	sender   *swpSender
	receiver *swpReceiver
	sniffer  *DupSniffer

	// 入口轮询周期，同时是信道接收的有界等待时长
	pollInterval time.Duration

	// 写锁：适配器不保证并发写安全 (如 WebSocket)
	writeMu sync.Mutex

	stats SWPStats

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    int32
	closeOnce sync.Once
}

// Open 在给定信道上打开 SWP 端点并启动后台活动
func Open(adapter Adapter, cfg *EndpointConfig) (*Endpoint, error) {
	if cfg == nil {
		cfg = DefaultEndpointConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Endpoint{
		adapter:      adapter,
		cfg:          cfg,
		space:        NewSpace(cfg.SeqModulus),
		sniffer:      NewDupSniffer(),
		pollInterval: pollInterval(cfg.RTO),
		ctx:          ctx,
		cancel:       cancel,
	}
	e.sender = newSWPSender(e.space, cfg.WindowSize, cfg.RTO, e.writePacket, &e.stats, cfg.Logger)
	e.receiver = newSWPReceiver(e.space, SWPDeliveryQueueSize, e.writePacket, &e.stats, cfg.Logger)

	e.wg.Add(2)
	go e.readLoop()
	go e.retransmitLoop()

	cfg.Logger.Info().
		Int("window", cfg.WindowSize).
		Dur("rto", cfg.RTO).
		Uint32("modulus", cfg.SeqModulus).
		Msg("SWP 端点已打开")

	return e, nil
}

// pollInterval 时钟检查周期取 RTO/4，下限 1ms
func pollInterval(rto time.Duration) time.Duration {
	p := rto / 4
	if p < time.Millisecond {
		p = time.Millisecond
	}
	return p
}

// Send 发送数据
// 超过单包载荷上限的数据自动切块，每块占用一个序列号；
// 窗口满时阻塞调用方，直到确认腾出空间或端点关闭
func (e *Endpoint) Send(data []byte) error {
	if e.IsClosed() {
		return ErrEndpointClosed
	}

	for off := 0; off < len(data); off += e.cfg.MaxPayload {
		end := off + e.cfg.MaxPayload
		if end > len(data) {
			end = len(data)
		}
		if err := e.sender.sendChunk(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage 把 data 作为单个包发送，保留消息边界
// 载荷超过上限属于调用方错误，同步拒绝
func (e *Endpoint) SendMessage(data []byte) error {
	if e.IsClosed() {
		return ErrEndpointClosed
	}
	if len(data) > e.cfg.MaxPayload {
		return ErrOversizedPayload
	}
	return e.sender.sendChunk(data)
}

// Receive 接收下一个按序载荷，阻塞直到有数据、ctx 取消或端点关闭
func (e *Endpoint) Receive(ctx context.Context) ([]byte, error) {
	if e.IsClosed() {
		return nil, ErrEndpointClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.ctx.Done():
		return nil, ErrEndpointClosed
	case data := <-e.receiver.delivery:
		return data, nil
	}
}

// Close 关闭端点
// 唤醒所有阻塞在 Send/Receive 的调用方，停止后台活动并释放信道
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		atomic.StoreInt32(&e.closed, 1)
		e.cancel()
		e.sender.close()
		e.wg.Wait()
		e.adapter.Close()
		e.cfg.Logger.Info().Msg("SWP 端点已关闭")
	})
	return nil
}

// IsClosed 端点是否已关闭
func (e *Endpoint) IsClosed() bool {
	return atomic.LoadInt32(&e.closed) != 0
}

// readLoop 读循环
// 唯一的入口分发点：解码入帧并按 DATA/ACK 分发给两个引擎；
// 损坏帧直接丢弃不确认，由发送方超时重传兜底
func (e *Endpoint) readLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		raw, err := e.adapter.ReceiveRaw(e.pollInterval)
		if err != nil {
			if errors.Is(err, ErrRecvTimeout) {
				continue
			}
			if e.IsClosed() {
				return
			}
			// 信道瞬时故障等同丢包，稍后重试
			e.cfg.Logger.Debug().Err(err).Msg("信道接收失败")
			continue
		}

		if e.sniffer.Observe(raw) {
			e.stats.add(&e.stats.DuplicateFrames, 1)
		}

		pkt, err := DecodeSWPPacket(raw)
		if err != nil {
			e.stats.add(&e.stats.CorruptDropped, 1)
			e.cfg.Logger.Debug().Err(err).Msg("丢弃损坏帧")
			continue
		}

		e.stats.add(&e.stats.PacketsReceived, 1)
		e.stats.add(&e.stats.BytesReceived, uint64(len(raw)))

		switch {
		case pkt.IsAck():
			e.sender.handleAck(pkt.Seq)
		case pkt.IsData():
			e.receiver.handleData(pkt)
		default:
			// 标志位合法性由校验和保证，未知组合仍防御性丢弃
			e.cfg.Logger.Debug().Uint16("flags", pkt.Flags).Msg("丢弃未知类型帧")
		}
	}
}

// retransmitLoop 重传循环，周期性驱动发送引擎的时钟
func (e *Endpoint) retransmitLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case now := <-ticker.C:
			e.sender.checkRetransmit(now)
		}
	}
}

// writePacket 编码并发送一个协议包 (发送引擎与接收引擎共用)
func (e *Endpoint) writePacket(pkt *SWPPacket) error {
	if e.IsClosed() {
		return ErrEndpointClosed
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.adapter.SendRaw(pkt.Encode()); err != nil {
		return err
	}
	e.stats.add(&e.stats.PacketsSent, 1)
	return nil
}

// =============================================================================
// 统计访问器 (供 metrics 收集器使用)
// =============================================================================

func (e *Endpoint) GetPacketsSent() uint64     { return e.stats.load(&e.stats.PacketsSent) }
func (e *Endpoint) GetPacketsReceived() uint64 { return e.stats.load(&e.stats.PacketsReceived) }
func (e *Endpoint) GetRetransmits() uint64     { return e.stats.load(&e.stats.Retransmits) }
func (e *Endpoint) GetAcksSent() uint64        { return e.stats.load(&e.stats.AcksSent) }
func (e *Endpoint) GetAcksReceived() uint64    { return e.stats.load(&e.stats.AcksReceived) }
func (e *Endpoint) GetStaleAcks() uint64       { return e.stats.load(&e.stats.StaleAcks) }
func (e *Endpoint) GetCorruptDropped() uint64  { return e.stats.load(&e.stats.CorruptDropped) }
func (e *Endpoint) GetDuplicateFrames() uint64 { return e.stats.load(&e.stats.DuplicateFrames) }
func (e *Endpoint) GetBytesSent() uint64       { return e.stats.load(&e.stats.BytesSent) }
func (e *Endpoint) GetBytesReceived() uint64   { return e.stats.load(&e.stats.BytesReceived) }
func (e *Endpoint) GetBytesDelivered() uint64  { return e.stats.load(&e.stats.BytesDelivered) }

func (e *Endpoint) GetOutOfOrderDropped() uint64 { return e.stats.load(&e.stats.OutOfOrderDropped) }
func (e *Endpoint) GetDeliveryStalls() uint64    { return e.stats.load(&e.stats.DeliveryStalls) }

// GetWindowInUse 当前在途包数
func (e *Endpoint) GetWindowInUse() int { return e.sender.outstanding() }

// GetWindowSize 配置的窗口大小
func (e *Endpoint) GetWindowSize() int { return e.cfg.WindowSize }

// GetMaxPayload 单包最大载荷
func (e *Endpoint) GetMaxPayload() int { return e.cfg.MaxPayload }

// GetDeliveryBacklog 交付队列积压数
func (e *Endpoint) GetDeliveryBacklog() int { return e.receiver.backlog() }

// GetWindowBase 当前窗口基序列号
func (e *Endpoint) GetWindowBase() uint32 { return e.sender.windowBase() }

// GetExpectedSeq 接收侧当前期望序列号
func (e *Endpoint) GetExpectedSeq() uint32 { return e.receiver.expectedSeq() }
