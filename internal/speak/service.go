package speak

import (
	"context"
	"sync"
	"time"

	"github.com/iabetor/pispeak/internal/audio"
	"github.com/iabetor/pispeak/internal/logger"
	"github.com/iabetor/pispeak/internal/tts"
)

// DefaultVolume 是请求未指定音量时使用的缩放系数。
const DefaultVolume = 1.0

// Result 描述一次成功播报。
type Result struct {
	Engine     string
	SampleRate int
	Samples    int
	Clipped    int
	Synthesis  time.Duration
	Playback   time.Duration
}

// Options 控制 Service 的行为。
type Options struct {
	// Timeout 限制合成阶段的耗时，0 表示不限制。播放阶段不受影响。
	Timeout time.Duration
	// Exclusive 为 true 时串行化对播放设备的访问。
	Exclusive bool
}

// Service 把文本转成语音并在本地设备上播放。
// 每次调用都是独立的同步事务：合成、缩放、播放，任一步失败即返回。
type Service struct {
	engine tts.Engine
	sink   audio.Sink
	opts   Options

	// playMu 仅在 Options.Exclusive 时使用
	playMu sync.Mutex
}

// NewService 创建播报服务。sink 通常是进程启动时创建的 *audio.Player。
func NewService(engine tts.Engine, sink audio.Sink, opts Options) *Service {
	return &Service{engine: engine, sink: sink, opts: opts}
}

// Speak 合成 text，按 volume 缩放后播放。
// 调用方取消 ctx 不会中断已经开始的播报；只有 Options.Timeout 会限制合成阶段。
func (s *Service) Speak(ctx context.Context, text string, volume float64) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	res := &Result{Engine: s.engine.Name()}

	synthCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	pcm, err := s.engine.Synthesize(synthCtx, text)
	res.Synthesis = time.Since(start)
	if err != nil {
		return res, engineError(err)
	}

	out, clipped, err := audio.ScalePCM(pcm.Data, volume)
	if err != nil {
		return res, engineError(err)
	}
	res.SampleRate = pcm.SampleRate
	res.Samples = len(out) / 2
	res.Clipped = clipped
	if clipped > 0 {
		logger.Debugf("[speak] 音量 %.2f 导致 %d/%d 个样本被钳位", volume, clipped, res.Samples)
	}

	start = time.Now()
	err = s.play(ctx, out, pcm.SampleRate)
	res.Playback = time.Since(start)
	if err != nil {
		return res, playbackError(err)
	}
	return res, nil
}

func (s *Service) play(ctx context.Context, pcm []byte, sampleRate int) error {
	if s.opts.Exclusive {
		s.playMu.Lock()
		defer s.playMu.Unlock()
	}
	return s.sink.PlayPCM(ctx, pcm, sampleRate)
}

// EngineName 返回底层合成引擎的名称。
func (s *Service) EngineName() string { return s.engine.Name() }
