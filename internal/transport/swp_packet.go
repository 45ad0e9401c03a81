// =============================================================================
// 文件: internal/transport/swp_packet.go
// 描述: SWP 滑动窗口可靠传输 - 包编解码 (纯函数，无副作用)
// =============================================================================
package transport

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// SWPPacket SWP 数据包
// 线格式: Seq(4) | Flags(2) | Len(2) | Checksum(4) | Payload(Len)
// Checksum 为 CRC-32 (IEEE)，计算范围是校验字段清零后的完整包
type SWPPacket struct {
	Seq   uint32 // DATA 包为数据序列号，ACK 包为被确认的序列号
	Flags uint16
	Data  []byte
}

// IsData 是否为数据包
func (p *SWPPacket) IsData() bool {
	return p.Flags&SWPFlagDATA != 0
}

// IsAck 是否为确认包
func (p *SWPPacket) IsAck() bool {
	return p.Flags&SWPFlagACK != 0
}

// Encode 编码 SWP 包
func (p *SWPPacket) Encode() []byte {
	buf := make([]byte, SWPHeaderSize+len(p.Data))

	binary.BigEndian.PutUint32(buf[0:4], p.Seq)
	binary.BigEndian.PutUint16(buf[4:6], p.Flags)
	binary.BigEndian.PutUint16(buf[6:8], uint16(len(p.Data)))
	// Checksum 字段先保持为零
	copy(buf[SWPHeaderSize:], p.Data)

	binary.BigEndian.PutUint32(buf[8:12], crc32.ChecksumIEEE(buf))
	return buf
}

// DecodeSWPPacket 解码 SWP 包
// 校验失败或长度字段与缓冲区不符时返回 ErrCorruptPacket；
// 序列号是否符合预期不在此判断，由调用方处理
func DecodeSWPPacket(data []byte) (*SWPPacket, error) {
	if len(data) < SWPHeaderSize {
		return nil, fmt.Errorf("%w: 数据太短 %d < %d", ErrCorruptPacket, len(data), SWPHeaderSize)
	}

	payloadLen := int(binary.BigEndian.Uint16(data[6:8]))
	if len(data) != SWPHeaderSize+payloadLen {
		return nil, fmt.Errorf("%w: 长度不一致 %d != %d", ErrCorruptPacket, len(data), SWPHeaderSize+payloadLen)
	}

	want := binary.BigEndian.Uint32(data[8:12])
	// 按校验字段清零的原始布局分段计算，避免修改输入缓冲区
	got := crc32.ChecksumIEEE(data[0:8])
	got = crc32.Update(got, crc32.IEEETable, []byte{0, 0, 0, 0})
	got = crc32.Update(got, crc32.IEEETable, data[SWPHeaderSize:])
	if got != want {
		return nil, fmt.Errorf("%w: 校验和不匹配 %08x != %08x", ErrCorruptPacket, got, want)
	}

	p := &SWPPacket{
		Seq:   binary.BigEndian.Uint32(data[0:4]),
		Flags: binary.BigEndian.Uint16(data[4:6]),
	}
	if payloadLen > 0 {
		p.Data = make([]byte, payloadLen)
		copy(p.Data, data[SWPHeaderSize:])
	}
	return p, nil
}

// NewDataPacket 创建数据包
func NewDataPacket(seq uint32, data []byte) *SWPPacket {
	p := &SWPPacket{
		Seq:   seq,
		Flags: SWPFlagDATA,
	}
	if len(data) > 0 {
		p.Data = make([]byte, len(data))
		copy(p.Data, data)
	}
	return p
}

// NewAckPacket 创建累积确认包 (确认 ackSeq 及其之前的全部序列号)
func NewAckPacket(ackSeq uint32) *SWPPacket {
	return &SWPPacket{
		Seq:   ackSeq,
		Flags: SWPFlagACK,
	}
}
