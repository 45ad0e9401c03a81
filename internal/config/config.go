// =============================================================================
// 文件: internal/config/config.go
// 描述: 配置管理 - YAML 加载、默认值与启动前校验
// =============================================================================
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrcgq/swp/internal/transport"
)

// Config 主配置
type Config struct {
	Transport string `yaml:"transport"` // udp | websocket
	Listen    string `yaml:"listen"`    // 本地监听地址
	Peer      string `yaml:"peer"`      // 对端地址 (UDP 服务端可留空被动学习)
	WSPath    string `yaml:"ws_path"`   // WebSocket 升级路径
	LogLevel  string `yaml:"log_level"` // debug | info | warn | error

	SWP     SWPConfig     `yaml:"swp"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SWPConfig 滑动窗口协议配置
// 这些参数是协议契约的一部分，双端必须一致
type SWPConfig struct {
	WindowSize int    `yaml:"window_size"`
	RTOMs      int    `yaml:"rto_ms"`
	MaxPayload int    `yaml:"max_payload"`
	SeqModulus uint32 `yaml:"seq_modulus"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Listen      string `yaml:"listen"`
	EnablePprof bool   `yaml:"enable_pprof"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Transport: "udp",
		Listen:    ":46000",
		LogLevel:  "info",
		WSPath:    "/swp",
		SWP: SWPConfig{
			WindowSize: transport.SWPDefaultWindowSize,
			RTOMs:      1000,
			MaxPayload: transport.SWPDefaultMaxPayload,
			SeqModulus: transport.SWPDefaultSeqModulus,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
	}
}

// LoadConfig 从文件加载配置 (在默认值基础上覆盖)
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 启动前校验，确保错误配置在运行前被拦截
func (c *Config) Validate() error {
	switch c.Transport {
	case "udp", "websocket":
	default:
		return fmt.Errorf("不支持的传输类型: %s", c.Transport)
	}

	if c.Listen == "" && c.Peer == "" {
		return fmt.Errorf("listen 与 peer 至少要配置一个")
	}

	if c.Transport == "websocket" && c.WSPath == "" {
		return fmt.Errorf("websocket 传输必须配置 ws_path")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("无效日志级别: %s", c.LogLevel)
	}

	if c.SWP.WindowSize < 1 {
		return fmt.Errorf("swp.window_size 无效: %d", c.SWP.WindowSize)
	}
	if c.SWP.SeqModulus < 2 {
		return fmt.Errorf("swp.seq_modulus 无效: %d", c.SWP.SeqModulus)
	}
	// Go-Back-N 约束：窗口必须严格小于序列号空间
	if uint64(c.SWP.WindowSize) >= uint64(c.SWP.SeqModulus) {
		return fmt.Errorf("swp.window_size %d 必须小于 swp.seq_modulus %d",
			c.SWP.WindowSize, c.SWP.SeqModulus)
	}
	if c.SWP.RTOMs < 1 {
		return fmt.Errorf("swp.rto_ms 无效: %d", c.SWP.RTOMs)
	}
	if c.SWP.MaxPayload < 1 || c.SWP.MaxPayload > transport.SWPMaxPayloadLimit {
		return fmt.Errorf("swp.max_payload 无效: %d", c.SWP.MaxPayload)
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("启用监控时必须配置 metrics.listen")
	}

	return nil
}

// EndpointConfig 转换为协议端点配置
func (c *Config) EndpointConfig() *transport.EndpointConfig {
	ec := transport.DefaultEndpointConfig()
	ec.WindowSize = c.SWP.WindowSize
	ec.RTO = time.Duration(c.SWP.RTOMs) * time.Millisecond
	ec.MaxPayload = c.SWP.MaxPayload
	ec.SeqModulus = c.SWP.SeqModulus
	return ec
}
