// =============================================================================
// 文件: internal/transport/swp_types.go
// 描述: SWP 滑动窗口可靠传输 - 类型与常量定义
// =============================================================================
package transport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// SWP 协议常量
const (
	// 包头大小: Seq(4) + Flags(2) + Len(2) + Checksum(4) = 12 bytes
	SWPHeaderSize = 12

	// 默认 MTU 与最大载荷 (双端需一致约定)
	SWPDefaultMTU        = 1400
	SWPDefaultMaxPayload = SWPDefaultMTU - SWPHeaderSize

	// 标志位 (2 bytes)
	SWPFlagDATA uint16 = 0x0001 // 数据包
	SWPFlagACK  uint16 = 0x0002 // 累积确认包

	// 默认参数
	SWPDefaultWindowSize = 5
	SWPDefaultRTO        = 1 * time.Second
	SWPDefaultSeqModulus = 1 << 16 // 序列号空间 2^16

	// 交付队列容量 (按序载荷等待应用消费)
	SWPDeliveryQueueSize = 1024

	// 载荷长度上限 (受 Len 字段 uint16 限制)
	SWPMaxPayloadLimit = 65535
)

// 错误定义
var (
	ErrCorruptPacket    = fmt.Errorf("数据包损坏")
	ErrOversizedPayload = fmt.Errorf("载荷超过最大限制")
	ErrEndpointClosed   = fmt.Errorf("端点已关闭")
)

// packetInfo 发送窗口内的在途包信息 (用于重传)
type packetInfo struct {
	Seq      uint32
	Data     []byte
	SentTime time.Time
	Retries  int
}

// EndpointConfig 端点配置
type EndpointConfig struct {
	WindowSize int           // 发送窗口大小 (最大在途包数)
	RTO        time.Duration // 重传超时 (固定，不自适应)
	MaxPayload int           // 单包最大载荷字节数
	SeqModulus uint32        // 序列号空间模数
	Logger     zerolog.Logger
}

// DefaultEndpointConfig 默认配置
func DefaultEndpointConfig() *EndpointConfig {
	return &EndpointConfig{
		WindowSize: SWPDefaultWindowSize,
		RTO:        SWPDefaultRTO,
		MaxPayload: SWPDefaultMaxPayload,
		SeqModulus: SWPDefaultSeqModulus,
		Logger:     zerolog.Nop(),
	}
}

// validate 配置自检
func (c *EndpointConfig) validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("窗口大小无效: %d", c.WindowSize)
	}
	if c.SeqModulus < 2 {
		return fmt.Errorf("序列号模数无效: %d", c.SeqModulus)
	}
	// Go-Back-N 要求窗口严格小于序列号空间，否则新旧包无法区分
	if uint64(c.WindowSize) >= uint64(c.SeqModulus) {
		return fmt.Errorf("窗口大小 %d 必须小于序列号模数 %d", c.WindowSize, c.SeqModulus)
	}
	if c.RTO <= 0 {
		return fmt.Errorf("重传超时无效: %v", c.RTO)
	}
	if c.MaxPayload < 1 || c.MaxPayload > SWPMaxPayloadLimit {
		return fmt.Errorf("最大载荷无效: %d", c.MaxPayload)
	}
	return nil
}

// SWPStats 端点统计 (全部原子计数)
type SWPStats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	Retransmits     uint64

	AcksSent     uint64
	AcksReceived uint64
	StaleAcks    uint64 // 重复/过期 ACK (被忽略)

	CorruptDropped    uint64 // 校验失败丢弃
	OutOfOrderDropped uint64 // 乱序丢弃 (含已交付的重复包)
	DuplicateFrames   uint64 // 入口疑似重复帧 (布隆过滤器诊断)
	DeliveryStalls    uint64 // 交付队列满导致的拒收

	BytesSent      uint64
	BytesReceived  uint64
	BytesDelivered uint64
}

func (s *SWPStats) add(field *uint64, n uint64) {
	atomic.AddUint64(field, n)
}

func (s *SWPStats) load(field *uint64) uint64 {
	return atomic.LoadUint64(field)
}
