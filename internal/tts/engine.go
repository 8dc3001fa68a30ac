package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/iabetor/pispeak/internal/config"
)

// PCM 是引擎输出的单声道 signed 16-bit LE 原始音频。
type PCM struct {
	Data       []byte
	SampleRate int
}

// Engine 定义语音合成后端接口。
type Engine interface {
	// Name 返回引擎名称，用于日志和历史记录。
	Name() string
	// Synthesize 将文本转换为原始 PCM。
	Synthesize(ctx context.Context, text string) (*PCM, error)
}

// New 根据配置创建语音合成引擎。
func New(cfg config.TTSConfig) (Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "piper", "":
		return NewPiperEngine(PiperConfig{
			Executable: cfg.Piper.Executable,
			ModelPath:  cfg.Piper.ModelPath,
			SampleRate: cfg.Piper.SampleRate,
			ExtraArgs:  cfg.Piper.ExtraArgs,
		}), nil
	case "edge":
		return NewEdgeEngine(cfg.Edge.Voice), nil
	case "tencent":
		return NewTencentEngine(TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			VoiceType: cfg.Tencent.VoiceType,
			Region:    cfg.Tencent.Region,
			Speed:     cfg.Tencent.Speed,
		})
	case "sherpa":
		return NewSherpaEngine(SherpaConfig{
			ModelPath:  cfg.Sherpa.ModelPath,
			Tokens:     cfg.Sherpa.Tokens,
			DataDir:    cfg.Sherpa.DataDir,
			NumThreads: cfg.Sherpa.NumThreads,
			SpeakerID:  cfg.Sherpa.SpeakerID,
			Speed:      cfg.Sherpa.Speed,
		})
	default:
		return nil, fmt.Errorf("[tts] 不支持的引擎: %s", cfg.Engine)
	}
}
