// cmd/swp-client/main.go
// SWP 客户端入口 - 薄 I/O 外壳
// 主动连接对端，stdin 发送 / stdout 接收

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrcgq/swp/internal/config"
	"github.com/mrcgq/swp/internal/metrics"
	"github.com/mrcgq/swp/internal/transport"
)

var (
	Version = "1.0.0"
)

func main() {
	configPath := flag.String("c", "", "配置文件路径")
	peer := flag.String("peer", "", "对端地址 (覆盖配置)")
	logLevel := flag.String("log", "", "日志级别 (覆盖配置)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *peer, *logLevel)
	if err != nil {
		fmt.Printf("[ERROR] 配置错误: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Printf("[ERROR] 运行失败: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(path, peer, logLevel string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path != "" {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
		cfg.Listen = ":0" // 客户端用临时端口
	}

	if peer != "" {
		cfg.Peer = peer
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.Peer == "" {
		return nil, fmt.Errorf("客户端必须指定对端地址")
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)
	logger.Info().Str("version", Version).Str("transport", cfg.Transport).
		Str("peer", cfg.Peer).Msg("SWP 客户端启动")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, err := buildAdapter(cfg)
	if err != nil {
		return err
	}

	epCfg := cfg.EndpointConfig()
	epCfg.Logger = logger
	ep, err := transport.Open(adapter, epCfg)
	if err != nil {
		return err
	}
	defer ep.Close()

	if cfg.Metrics.Enabled {
		ms := metrics.NewMetricsServer(cfg.Metrics.Listen, cfg.Metrics.EnablePprof, logger)
		ms.MustRegisterCollector(metrics.NewEndpointCollector(ep))
		if err := ms.Start(); err != nil {
			return err
		}
		defer ms.Stop()
		logger.Info().Str("listen", cfg.Metrics.Listen).Msg("指标服务已启动")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return recvPump(gctx, ep) })
	g.Go(func() error { return sendPump(gctx, ep) })
	g.Go(func() error {
		<-gctx.Done()
		return ep.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("SWP 客户端退出")
	return nil
}

// buildAdapter 按配置构建信道适配器
func buildAdapter(cfg *config.Config) (transport.Adapter, error) {
	switch cfg.Transport {
	case "udp":
		return transport.NewUDPAdapter(cfg.Listen, cfg.Peer)
	case "websocket":
		return transport.DialWS(fmt.Sprintf("ws://%s%s", cfg.Peer, cfg.WSPath))
	default:
		return nil, fmt.Errorf("不支持的传输类型: %s", cfg.Transport)
	}
}

// sendPump stdin 按行读取并发送
func sendPump(ctx context.Context, ep *transport.Endpoint) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := ep.Send(scanner.Bytes()); err != nil {
			if errors.Is(err, transport.ErrEndpointClosed) {
				return nil
			}
			return err
		}
	}
	return scanner.Err()
}

// recvPump 接收按序载荷并输出
func recvPump(ctx context.Context, ep *transport.Endpoint) error {
	for {
		data, err := ep.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrEndpointClosed) {
				return nil
			}
			return err
		}
		fmt.Printf("%s\n", data)
	}
}

// newLogger 创建控制台日志器
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).With().Timestamp().Logger()
}
