// =============================================================================
// 文件: internal/transport/swp_receiver.go
// 描述: SWP 滑动窗口可靠传输 - 接收引擎 (按序交付 / 累积确认)
// =============================================================================
package transport

import (
	"sync"

	"github.com/rs/zerolog"
)

// swpReceiver 接收引擎
// Go-Back-N 语义：只接受 seq == expected 的包，乱序包一律丢弃不缓存；
// 任何合法 DATA 包到达都回发一次对 expected-1 的累积确认，
// 让发送方据此发现缺口并重传
type swpReceiver struct {
	mu sync.Mutex

	space    Space
	expected uint32 // 愿意接收并交付的下一个序列号，单调前移 (模回绕)

	// 按序载荷交付队列，Receive 从这里消费
	delivery chan []byte

	transmit func(*SWPPacket) error
	stats    *SWPStats
	log      zerolog.Logger
}

// newSWPReceiver 创建接收引擎
func newSWPReceiver(space Space, queueSize int, transmit func(*SWPPacket) error, stats *SWPStats, log zerolog.Logger) *swpReceiver {
	return &swpReceiver{
		space:    space,
		delivery: make(chan []byte, queueSize),
		transmit: transmit,
		stats:    stats,
		log:      log,
	}
}

// handleData 处理到达的数据包 (由端点读循环调用)
func (r *swpReceiver) handleData(pkt *SWPPacket) {
	r.mu.Lock()

	var ackSeq uint32
	if pkt.Seq == r.expected {
		// 按序包：先确保能入队再推进游标，队列满时按丢包处理
		// (不确认，发送方会重传)，保证交付恰好一次
		select {
		case r.delivery <- pkt.Data:
			r.expected = r.space.Next(r.expected)
			r.stats.add(&r.stats.BytesDelivered, uint64(len(pkt.Data)))
		default:
			r.stats.add(&r.stats.DeliveryStalls, 1)
			r.mu.Unlock()
			r.log.Debug().Uint32("seq", pkt.Seq).Msg("交付队列已满，按丢包处理")
			return
		}
		ackSeq = pkt.Seq
	} else {
		// 重复包或乱序包：不交付，重发最后一个按序确认
		// expected 为 0 时 ackSeq 回绕到 modulus-1，发送方的距离检查会忽略它
		ackSeq = r.space.Prev(r.expected)
		r.stats.add(&r.stats.OutOfOrderDropped, 1)
		r.log.Debug().
			Uint32("seq", pkt.Seq).
			Uint32("expected", r.expected).
			Msg("丢弃重复或乱序包，重发累积确认")
	}
	r.mu.Unlock()

	if err := r.transmit(NewAckPacket(ackSeq)); err != nil {
		// ACK 丢失等同信道丢包，发送方超时后会重传数据
		r.log.Debug().Uint32("ack", ackSeq).Err(err).Msg("确认发送失败")
		return
	}
	r.stats.add(&r.stats.AcksSent, 1)
}

// expectedSeq 当前期望序列号
func (r *swpReceiver) expectedSeq() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expected
}

// backlog 交付队列中等待应用消费的载荷数
func (r *swpReceiver) backlog() int {
	return len(r.delivery)
}
