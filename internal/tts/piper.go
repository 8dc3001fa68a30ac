package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/iabetor/pispeak/internal/logger"
)

// DefaultPiperSampleRate 是 piper medium 模型输出的固定采样率。
const DefaultPiperSampleRate = 22050

const pipeWaitDelay = 500 * time.Millisecond

// ExitError 表示 TTS 子进程以非零状态退出。
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("piper 退出码 %d", e.Code)
	}
	return fmt.Sprintf("piper 退出码 %d: %s", e.Code, msg)
}

// PiperConfig Piper 引擎参数。
type PiperConfig struct {
	Executable string
	ModelPath  string
	SampleRate int
	ExtraArgs  []string
}

// PiperEngine 使用 piper CLI 子进程实现语音合成。
// 文本通过 stdin 写入，原始 PCM 从 stdout 读取，stderr 在失败时作为诊断信息。
type PiperEngine struct {
	cfg PiperConfig
}

// NewPiperEngine 创建 Piper TTS 引擎，未设置的参数使用默认值。
func NewPiperEngine(cfg PiperConfig) *PiperEngine {
	if cfg.Executable == "" {
		cfg.Executable = "piper"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultPiperSampleRate
	}
	return &PiperEngine{cfg: cfg}
}

// Name 实现 Engine 接口。
func (p *PiperEngine) Name() string { return "piper" }

// Args 返回传给 piper 的命令行参数。
func (p *PiperEngine) Args() []string {
	args := []string{"--model", p.cfg.ModelPath, "--output_raw"}
	return append(args, p.cfg.ExtraArgs...)
}

// Synthesize 调用 piper 将文本转换为 signed 16-bit LE 单声道 PCM。
// 空文本同样交给 piper 处理，返回值取决于 piper 本身。
func (p *PiperEngine) Synthesize(ctx context.Context, text string) (*PCM, error) {
	logger.Debugf("[tts] piper: 正在合成 %d 个字符，模型=%s", len([]rune(text)), p.cfg.ModelPath)

	cmd := exec.CommandContext(ctx, p.cfg.Executable, p.Args()...)
	cmd.Stdin = strings.NewReader(text)
	// 被取消后最多再等待这么久，避免孙进程占住管道
	cmd.WaitDelay = pipeWaitDelay

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			logger.Warnf("[tts] piper stderr: %s", stderr.String())
			return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("[tts] piper 执行超时或被取消: %w", ctx.Err())
		}
		return nil, fmt.Errorf("[tts] piper 执行失败: %w", err)
	}

	logger.Debugf("[tts] piper: 收到 %d 字节原始 PCM", stdout.Len())

	return &PCM{Data: stdout.Bytes(), SampleRate: p.cfg.SampleRate}, nil
}
