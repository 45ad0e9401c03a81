// =============================================================================
// 文件: internal/transport/swp_sender.go
// 描述: SWP 滑动窗口可靠传输 - 发送引擎 (窗口管理 / 累积确认 / Go-Back-N 重传)
// =============================================================================
package transport

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// swpSender 发送引擎
// 窗口不变量: Dist(base, nextSeq) <= size 恒成立
// base、nextSeq、entries、deadline 全部由 mu 保护，
// 应用调用方 (sendChunk)、ACK 入口 (handleAck)、重传时钟 (checkRetransmit)
// 三条执行流只通过这一个临界区交互
type swpSender struct {
	mu      sync.Mutex
	notFull *sync.Cond // 窗口腾出空间或关闭时广播

	space Space
	size  uint32

	base    uint32 // 最老的未确认序列号
	nextSeq uint32 // 下一个可分配序列号
	baseIdx int    // base 对应的环形槽位

	// 在途包环形缓冲，槽位 = (baseIdx + Dist(base, seq)) % size
	// 不能用 seq % size：模数不是窗口整数倍时回绕处会撞槽
	entries []*packetInfo

	// 重传时钟：绑定最老未确认包的单一截止时间
	// 零值表示未武装 (窗口为空)
	deadline time.Time
	rto      time.Duration

	transmit func(*SWPPacket) error
	stats    *SWPStats
	closed   bool
	log      zerolog.Logger
}

// newSWPSender 创建发送引擎
func newSWPSender(space Space, size int, rto time.Duration, transmit func(*SWPPacket) error, stats *SWPStats, log zerolog.Logger) *swpSender {
	s := &swpSender{
		space:    space,
		size:     uint32(size),
		entries:  make([]*packetInfo, size),
		rto:      rto,
		transmit: transmit,
		stats:    stats,
		log:      log,
	}
	s.notFull = sync.NewCond(&s.mu)
	return s
}

// sendChunk 发送单个载荷块
// 窗口满时阻塞调用方 (背压)，由 ACK 推进 base 或端点关闭唤醒
func (s *swpSender) sendChunk(data []byte) error {
	s.mu.Lock()

	for !s.closed && s.space.Dist(s.base, s.nextSeq) >= s.size {
		s.notFull.Wait()
	}
	if s.closed {
		s.mu.Unlock()
		return ErrEndpointClosed
	}

	now := time.Now()
	seq := s.nextSeq
	info := &packetInfo{
		Seq:      seq,
		Data:     make([]byte, len(data)),
		SentTime: now,
	}
	copy(info.Data, data)

	s.entries[s.slot(seq)] = info
	wasEmpty := s.base == s.nextSeq
	s.nextSeq = s.space.Next(s.nextSeq)

	// 窗口从空变非空时武装重传时钟
	if wasEmpty {
		s.deadline = now.Add(s.rto)
	}

	pkt := NewDataPacket(seq, info.Data)
	s.mu.Unlock()

	// 发送失败等同丢包，交给重传时钟兜底；字节只在写入成功后计数
	if err := s.transmit(pkt); err != nil {
		s.log.Debug().Uint32("seq", seq).Err(err).Msg("数据包首发失败，等待重传")
	} else {
		s.stats.add(&s.stats.BytesSent, uint64(len(data)))
		s.log.Debug().Uint32("seq", seq).Int("len", len(data)).Msg("数据包已发送")
	}

	return nil
}

// slot 计算序列号在环形缓冲中的槽位
func (s *swpSender) slot(seq uint32) int {
	return (s.baseIdx + int(s.space.Dist(s.base, seq))) % int(s.size)
}

// handleAck 处理累积确认
// ackSeq 确认其本身及之前的全部序列号；只接受落在 (base-1, nextSeq) 内的
// 确认，重复/过期 ACK 静默忽略
func (s *swpSender) handleAck(ackSeq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	outstanding := s.space.Dist(s.base, s.nextSeq)
	confirmed := s.space.Dist(s.base, ackSeq) + 1
	if outstanding == 0 || confirmed > outstanding {
		s.stats.add(&s.stats.StaleAcks, 1)
		s.log.Debug().Uint32("ack", ackSeq).Uint32("base", s.base).Msg("忽略过期或重复 ACK")
		return
	}

	for i := uint32(0); i < confirmed; i++ {
		s.entries[s.baseIdx] = nil
		s.baseIdx = (s.baseIdx + 1) % int(s.size)
	}
	s.base = s.space.Add(s.base, confirmed)
	s.stats.add(&s.stats.AcksReceived, 1)

	// 窗口清空则撤销时钟，否则为新的最老未确认包重新计时
	if s.base == s.nextSeq {
		s.deadline = time.Time{}
	} else {
		s.deadline = time.Now().Add(s.rto)
	}

	s.notFull.Broadcast()
	s.log.Debug().Uint32("ack", ackSeq).Uint32("base", s.base).Msg("窗口前移")
}

// checkRetransmit 重传时钟检查
// 截止时间已过且仍有未确认包时，按序重传整个窗口 (Go-Back-N)，
// 然后从当前时刻重新计时；不设重试上限，直到确认或端点关闭
func (s *swpSender) checkRetransmit(now time.Time) {
	s.mu.Lock()

	if s.closed || s.deadline.IsZero() || now.Before(s.deadline) {
		s.mu.Unlock()
		return
	}

	outstanding := s.space.Dist(s.base, s.nextSeq)
	if outstanding == 0 {
		s.deadline = time.Time{}
		s.mu.Unlock()
		return
	}

	pkts := make([]*SWPPacket, 0, outstanding)
	for i := uint32(0); i < outstanding; i++ {
		seq := s.space.Add(s.base, i)
		info := s.entries[s.slot(seq)]
		if info == nil {
			continue
		}
		info.Retries++
		pkts = append(pkts, NewDataPacket(info.Seq, info.Data))
	}
	s.deadline = now.Add(s.rto)
	base := s.base
	s.mu.Unlock()

	for _, pkt := range pkts {
		if err := s.transmit(pkt); err != nil {
			s.log.Debug().Uint32("seq", pkt.Seq).Err(err).Msg("重传失败，等待下一轮")
		}
		s.stats.add(&s.stats.Retransmits, 1)
	}
	if len(pkts) > 0 {
		s.log.Debug().Uint32("base", base).Int("count", len(pkts)).Msg("超时重传整个窗口")
	}
}

// outstanding 当前在途包数
func (s *swpSender) outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.space.Dist(s.base, s.nextSeq))
}

// windowBase 当前窗口基序列号
func (s *swpSender) windowBase() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// close 关闭发送引擎，唤醒所有阻塞在窗口上的调用方
func (s *swpSender) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.deadline = time.Time{}
	s.notFull.Broadcast()
}
