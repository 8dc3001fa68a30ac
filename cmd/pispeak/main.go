package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iabetor/pispeak/internal/api"
	"github.com/iabetor/pispeak/internal/audio"
	"github.com/iabetor/pispeak/internal/config"
	"github.com/iabetor/pispeak/internal/history"
	"github.com/iabetor/pispeak/internal/logger"
	"github.com/iabetor/pispeak/internal/speak"
	"github.com/iabetor/pispeak/internal/tts"
)

const defaultConfigPath = "configs/pispeak.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "配置文件路径")
	addr := flag.String("addr", "", "监听地址，覆盖配置文件中的 server.addr")
	flag.Parse()

	// 默认路径下的配置文件可以不存在，此时全部使用默认值
	load := config.Load
	if *configPath == defaultConfigPath {
		load = config.LoadOrDefault
	}
	cfg, err := load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Errorf("[main] %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger.With(
		"engine", cfg.TTS.Engine,
		"addr", cfg.Server.Addr,
		"exclusive", cfg.Audio.Exclusive,
		"history", cfg.History.Enabled,
		"log_level", cfg.Log.Level,
	).Info("[main] pispeak 启动中")

	engine, err := tts.New(cfg.TTS)
	if err != nil {
		return fmt.Errorf("创建语音合成引擎失败: %w", err)
	}
	// sherpa 等进程内引擎持有模型资源，需要在退出时释放
	if c, ok := engine.(io.Closer); ok {
		defer c.Close()
	}

	// 播放上下文在进程生命周期内只创建一次，输出固定为单声道。
	// Close 会等待仍在进行的播放结束，Shutdown 超时也不会在设备使用中释放上下文。
	player, err := audio.NewPlayer(1)
	if err != nil {
		return fmt.Errorf("初始化音频播放失败: %w", err)
	}
	defer player.Close()

	if !cfg.Audio.Exclusive {
		logger.Warnf("[main] audio.exclusive 未开启，并发请求的播放可能交错")
	}
	svc := speak.NewService(engine, player, speak.Options{
		Timeout:   cfg.TTS.Timeout,
		Exclusive: cfg.Audio.Exclusive,
	})

	var hist api.HistoryStore
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("打开播报历史失败: %w", err)
		}
		defer store.Close()
		hist = store
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(svc, hist),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[main] HTTP 服务监听 %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("[main] 收到信号 %v，正在关闭...", sig)
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP 服务异常: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("[main] 强制关闭 HTTP 服务: %v", err)
	}

	logger.Info("[main] pispeak 已停止")
	return nil
}
