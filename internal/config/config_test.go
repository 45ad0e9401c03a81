// =============================================================================
// 文件: internal/config/config_test.go
// 描述: 配置鲁棒性测试 - 确保错误配置能在启动前被拦截
// =============================================================================
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrcgq/swp/internal/transport"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("基础配置默认值", func(t *testing.T) {
		if cfg.Transport != "udp" {
			t.Errorf("Transport 默认值错误: got %s, want udp", cfg.Transport)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel 默认值错误: got %s, want info", cfg.LogLevel)
		}
		if cfg.WSPath != "/swp" {
			t.Errorf("WSPath 默认值错误: got %s, want /swp", cfg.WSPath)
		}
	})

	t.Run("SWP配置默认值", func(t *testing.T) {
		if cfg.SWP.WindowSize != transport.SWPDefaultWindowSize {
			t.Errorf("WindowSize 默认值错误: got %d, want %d",
				cfg.SWP.WindowSize, transport.SWPDefaultWindowSize)
		}
		if cfg.SWP.RTOMs != 1000 {
			t.Errorf("RTOMs 默认值错误: got %d, want 1000", cfg.SWP.RTOMs)
		}
		if cfg.SWP.SeqModulus != transport.SWPDefaultSeqModulus {
			t.Errorf("SeqModulus 默认值错误: got %d, want %d",
				cfg.SWP.SeqModulus, transport.SWPDefaultSeqModulus)
		}
	})

	t.Run("默认配置应通过校验", func(t *testing.T) {
		if err := cfg.Validate(); err != nil {
			t.Errorf("默认配置校验失败: %v", err)
		}
	})
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知传输类型", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"无效日志级别", func(c *Config) { c.LogLevel = "verbose" }},
		{"窗口为零", func(c *Config) { c.SWP.WindowSize = 0 }},
		{"窗口不小于模数", func(c *Config) { c.SWP.WindowSize = 64; c.SWP.SeqModulus = 64 }},
		{"超时为零", func(c *Config) { c.SWP.RTOMs = 0 }},
		{"载荷为零", func(c *Config) { c.SWP.MaxPayload = 0 }},
		{"载荷超限", func(c *Config) { c.SWP.MaxPayload = transport.SWPMaxPayloadLimit + 1 }},
		{"websocket缺路径", func(c *Config) { c.Transport = "websocket"; c.WSPath = "" }},
		{"监控缺地址", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Listen = "" }},
		{"地址全空", func(c *Config) { c.Listen = ""; c.Peer = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("错误配置应被拦截")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	yamlBody := `
transport: websocket
listen: ":7000"
peer: "example.org:7000"
log_level: debug
swp:
  window_size: 8
  rto_ms: 250
  max_payload: 512
  seq_modulus: 4096
metrics:
  enabled: true
  listen: ":9100"
`
	path := filepath.Join(t.TempDir(), "swp.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Transport != "websocket" {
		t.Errorf("Transport: got %s, want websocket", cfg.Transport)
	}
	if cfg.SWP.WindowSize != 8 {
		t.Errorf("WindowSize: got %d, want 8", cfg.SWP.WindowSize)
	}
	if cfg.SWP.SeqModulus != 4096 {
		t.Errorf("SeqModulus: got %d, want 4096", cfg.SWP.SeqModulus)
	}
	// 未覆盖的字段保持默认
	if cfg.WSPath != "/swp" {
		t.Errorf("WSPath 应保持默认: got %s", cfg.WSPath)
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/swp.yaml"); err == nil {
			t.Error("不存在的文件应报错")
		}
	})

	t.Run("非法YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(path, []byte("{{not yaml"), 0o644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("非法 YAML 应报错")
		}
	})

	t.Run("合法YAML但配置非法", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		os.WriteFile(path, []byte("swp:\n  window_size: -1\n"), 0o644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("非法配置值应被拦截")
		}
	})
}

func TestEndpointConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SWP.WindowSize = 16
	cfg.SWP.RTOMs = 300
	cfg.SWP.MaxPayload = 900
	cfg.SWP.SeqModulus = 1 << 12

	ec := cfg.EndpointConfig()
	if ec.WindowSize != 16 {
		t.Errorf("WindowSize: got %d, want 16", ec.WindowSize)
	}
	if ec.RTO != 300*time.Millisecond {
		t.Errorf("RTO: got %v, want 300ms", ec.RTO)
	}
	if ec.MaxPayload != 900 {
		t.Errorf("MaxPayload: got %d, want 900", ec.MaxPayload)
	}
	if ec.SeqModulus != 1<<12 {
		t.Errorf("SeqModulus: got %d, want %d", ec.SeqModulus, 1<<12)
	}
}
