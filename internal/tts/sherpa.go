package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iabetor/pispeak/internal/audio"
	"github.com/iabetor/pispeak/internal/logger"
	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// ErrSherpaClosed 在引擎关闭后调用 Synthesize 时返回。
var ErrSherpaClosed = errors.New("sherpa 引擎已关闭")

// SherpaConfig sherpa-onnx 离线 TTS 配置。
// ModelPath 可直接使用 piper 导出的 VITS .onnx 语音模型。
type SherpaConfig struct {
	ModelPath  string  // VITS 模型文件，例如 tr_TR-dfki-medium.onnx
	Tokens     string  // tokens.txt
	DataDir    string  // espeak-ng-data 目录，piper 模型必需
	NumThreads int     // 推理线程数，默认 2
	SpeakerID  int     // 多说话人模型的说话人编号
	Speed      float32 // 语速，默认 1.0
}

func (c *SherpaConfig) validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("[tts] sherpa: 未配置 model_path")
	}
	if c.Tokens == "" {
		return fmt.Errorf("[tts] sherpa: 未配置 tokens")
	}
	if c.NumThreads <= 0 {
		c.NumThreads = 2
	}
	if c.Speed <= 0 {
		c.Speed = 1.0
	}
	return nil
}

// SherpaEngine 在进程内通过 sherpa-onnx 运行 VITS 模型合成语音，不需要外部 piper 可执行文件。
// 底层 OfflineTts 不支持并发调用，Synthesize 内部串行化。
type SherpaEngine struct {
	cfg SherpaConfig

	mu  sync.Mutex
	tts *sherpa.OfflineTts
}

var _ Engine = (*SherpaEngine)(nil)

// NewSherpaEngine 加载模型并创建引擎。
func NewSherpaEngine(cfg SherpaConfig) (*SherpaEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	config := sherpa.OfflineTtsConfig{}
	config.Model.Vits.Model = cfg.ModelPath
	config.Model.Vits.Tokens = cfg.Tokens
	config.Model.Vits.DataDir = cfg.DataDir
	config.Model.Vits.NoiseScale = 0.667
	config.Model.Vits.NoiseScaleW = 0.8
	config.Model.Vits.LengthScale = 1.0
	config.Model.NumThreads = cfg.NumThreads
	config.Model.Provider = "cpu"
	config.MaxNumSentences = 1

	t := sherpa.NewOfflineTts(&config)
	if t == nil {
		return nil, fmt.Errorf("[tts] sherpa: 创建离线 TTS 失败，模型: %s", cfg.ModelPath)
	}

	logger.Infof("[tts] Sherpa 引擎已初始化 (model=%s, threads=%d)", cfg.ModelPath, cfg.NumThreads)
	return &SherpaEngine{cfg: cfg, tts: t}, nil
}

// Name 实现 Engine 接口。
func (e *SherpaEngine) Name() string { return "sherpa" }

// Synthesize 将文本合成为单声道 PCM。
// Generate 无法中途取消：ctx 结束时立即返回错误，后台的合成完成后结果被丢弃。
func (e *SherpaEngine) Synthesize(ctx context.Context, text string) (*PCM, error) {
	type result struct {
		pcm *PCM
		err error
	}
	ch := make(chan result, 1)

	go func() {
		pcm, err := e.generate(text)
		ch <- result{pcm, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("[tts] sherpa 合成中断: %w", ctx.Err())
	case r := <-ch:
		return r.pcm, r.err
	}
}

func (e *SherpaEngine) generate(text string) (*PCM, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tts == nil {
		return nil, ErrSherpaClosed
	}

	logger.Debugf("[tts] sherpa: 正在合成 %d 个字符", len([]rune(text)))
	generated := e.tts.Generate(text, e.cfg.SpeakerID, e.cfg.Speed)
	if generated == nil {
		return nil, fmt.Errorf("[tts] sherpa: 合成失败")
	}

	data, clipped := audio.Float32ToInt16Bytes(generated.Samples)
	if clipped > 0 {
		logger.Debugf("[tts] sherpa: %d 个样本超出范围被钳位", clipped)
	}
	return &PCM{Data: data, SampleRate: generated.SampleRate}, nil
}

// Close 释放底层 sherpa-onnx 资源，会等待进行中的合成结束。
func (e *SherpaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tts != nil {
		sherpa.DeleteOfflineTts(e.tts)
		e.tts = nil
		logger.Info("[tts] Sherpa 引擎已关闭")
	}
	return nil
}
