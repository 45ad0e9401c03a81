// =============================================================================
// 文件: internal/transport/swp_packet_test.go
// 描述: SWP 包编解码测试
// =============================================================================
package transport

import (
	"bytes"
	"errors"
	"testing"
)

func TestSWPPacketEncodeDecode(t *testing.T) {
	original := &SWPPacket{
		Seq:   12345,
		Flags: SWPFlagDATA,
		Data:  []byte("Hello, SWP!"),
	}

	encoded := original.Encode()
	decoded, err := DecodeSWPPacket(encoded)
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}

	if decoded.Seq != original.Seq {
		t.Errorf("Seq 不匹配: got %d, want %d", decoded.Seq, original.Seq)
	}
	if decoded.Flags != original.Flags {
		t.Errorf("Flags 不匹配: got %d, want %d", decoded.Flags, original.Flags)
	}
	if !bytes.Equal(decoded.Data, original.Data) {
		t.Errorf("Data 不匹配: got %v, want %v", decoded.Data, original.Data)
	}
}

func TestSWPPacketAckRoundTrip(t *testing.T) {
	ack := NewAckPacket(65535)

	decoded, err := DecodeSWPPacket(ack.Encode())
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if !decoded.IsAck() || decoded.IsData() {
		t.Errorf("类型标志错误: flags=%#x", decoded.Flags)
	}
	if decoded.Seq != 65535 {
		t.Errorf("确认号不匹配: got %d, want 65535", decoded.Seq)
	}
	if len(decoded.Data) != 0 {
		t.Errorf("ACK 包不应携带载荷: %d 字节", len(decoded.Data))
	}
}

func TestSWPPacketEmptyPayload(t *testing.T) {
	p := NewDataPacket(7, nil)

	decoded, err := DecodeSWPPacket(p.Encode())
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if decoded.Seq != 7 || !decoded.IsData() {
		t.Errorf("头部不匹配: seq=%d flags=%#x", decoded.Seq, decoded.Flags)
	}
}

func TestSWPPacketCorruption(t *testing.T) {
	t.Run("载荷被篡改", func(t *testing.T) {
		encoded := NewDataPacket(1, []byte("payload")).Encode()
		encoded[len(encoded)-1] ^= 0xFF

		if _, err := DecodeSWPPacket(encoded); !errors.Is(err, ErrCorruptPacket) {
			t.Errorf("篡改应被检出: got %v, want %v", err, ErrCorruptPacket)
		}
	})

	t.Run("头部被篡改", func(t *testing.T) {
		encoded := NewDataPacket(1, []byte("payload")).Encode()
		encoded[0] ^= 0x01

		if _, err := DecodeSWPPacket(encoded); !errors.Is(err, ErrCorruptPacket) {
			t.Errorf("篡改应被检出: got %v, want %v", err, ErrCorruptPacket)
		}
	})

	t.Run("缓冲区太短", func(t *testing.T) {
		if _, err := DecodeSWPPacket(make([]byte, SWPHeaderSize-1)); !errors.Is(err, ErrCorruptPacket) {
			t.Errorf("短帧应被检出: got %v, want %v", err, ErrCorruptPacket)
		}
	})

	t.Run("长度字段不一致", func(t *testing.T) {
		encoded := NewDataPacket(1, []byte("payload")).Encode()
		// 截断载荷，使 Len 字段与缓冲区不符
		if _, err := DecodeSWPPacket(encoded[:len(encoded)-3]); !errors.Is(err, ErrCorruptPacket) {
			t.Errorf("长度不一致应被检出: got %v, want %v", err, ErrCorruptPacket)
		}
	})
}

func TestSWPPacketEncodeIsPure(t *testing.T) {
	p := NewDataPacket(42, []byte("stable"))

	a := p.Encode()
	b := p.Encode()
	if !bytes.Equal(a, b) {
		t.Error("编码应是确定性的")
	}

	// 修改编码结果不应影响原包
	a[SWPHeaderSize] ^= 0xFF
	if !bytes.Equal(p.Data, []byte("stable")) {
		t.Error("编码不应与包共享底层载荷")
	}
}
