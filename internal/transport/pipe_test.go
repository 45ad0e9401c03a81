// =============================================================================
// 文件: internal/transport/pipe_test.go
// 描述: 进程内信道适配器测试
// =============================================================================
package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPipePairDelivery(t *testing.T) {
	a, b := NewPipePair(16)
	defer a.Close()
	defer b.Close()

	want := []byte("over the wire")
	if err := a.SendRaw(want); err != nil {
		t.Fatalf("发送失败: %v", err)
	}

	got, err := b.ReceiveRaw(time.Second)
	if err != nil {
		t.Fatalf("接收失败: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("帧内容不匹配: got %q, want %q", got, want)
	}
}

func TestPipeReceiveTimeout(t *testing.T) {
	a, b := NewPipePair(16)
	defer a.Close()
	defer b.Close()

	if _, err := b.ReceiveRaw(20 * time.Millisecond); !errors.Is(err, ErrRecvTimeout) {
		t.Errorf("空信道应超时: got %v, want %v", err, ErrRecvTimeout)
	}
}

func TestPipeSendHook(t *testing.T) {
	t.Run("丢弃", func(t *testing.T) {
		a, b := NewPipePair(16)
		defer a.Close()
		defer b.Close()

		a.SetSendHook(func(frame []byte) [][]byte { return nil })
		if err := a.SendRaw([]byte("vanish")); err != nil {
			t.Fatalf("发送失败: %v", err)
		}
		if _, err := b.ReceiveRaw(20 * time.Millisecond); !errors.Is(err, ErrRecvTimeout) {
			t.Error("被丢弃的帧不应到达")
		}
	})

	t.Run("重复", func(t *testing.T) {
		a, b := NewPipePair(16)
		defer a.Close()
		defer b.Close()

		a.SetSendHook(func(frame []byte) [][]byte { return [][]byte{frame, frame} })
		if err := a.SendRaw([]byte("twice")); err != nil {
			t.Fatalf("发送失败: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := b.ReceiveRaw(time.Second); err != nil {
				t.Fatalf("第 %d 份副本未到达: %v", i, err)
			}
		}
	})
}

func TestPipeSendIsolatesBuffer(t *testing.T) {
	a, b := NewPipePair(16)
	defer a.Close()
	defer b.Close()

	buf := []byte("mutable")
	if err := a.SendRaw(buf); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	buf[0] = 'X'

	got, err := b.ReceiveRaw(time.Second)
	if err != nil {
		t.Fatalf("接收失败: %v", err)
	}
	if string(got) != "mutable" {
		t.Errorf("发送后修改缓冲区不应影响在途帧: got %q", got)
	}
}

func TestPipeClosed(t *testing.T) {
	a, b := NewPipePair(16)
	b.Close()

	if _, err := b.ReceiveRaw(time.Second); !errors.Is(err, ErrAdapterClosed) {
		t.Errorf("关闭后接收: got %v, want %v", err, ErrAdapterClosed)
	}
	a.Close()
	if err := a.SendRaw([]byte("late")); !errors.Is(err, ErrAdapterClosed) {
		t.Errorf("关闭后发送: got %v, want %v", err, ErrAdapterClosed)
	}
}
