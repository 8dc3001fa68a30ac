package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/iabetor/pispeak/internal/logger"
)

// ErrPlayerClosed 在播放器关闭后调用 PlayPCM 时返回。
var ErrPlayerClosed = errors.New("播放器已关闭")

// Sink 接收单声道 signed 16-bit LE PCM 并输出到音频设备。
type Sink interface {
	PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error
}

// Player 使用 malgo (miniaudio) 管理音频播放。
// 上下文在进程启动时创建一次，每次播放单独打开和释放一个播放设备。
// Player 本身不串行化并发播放，多个 PlayPCM 同时调用时会各自打开设备。
type Player struct {
	ctx      *malgo.AllocatedContext
	channels uint32
	mu       sync.Mutex
	closed   bool
	// inflight 统计尚未释放设备的 PlayPCM 调用，Close 等待其归零后才释放上下文
	inflight sync.WaitGroup
}

// NewPlayer 创建一个新的音频播放实例。
// channels: 声道数，通常为 1（单声道）
func NewPlayer(channels int) (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("[audio] miniaudio: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
	}

	return &Player{
		ctx:      ctx,
		channels: uint32(channels),
	}, nil
}

// PlayPCM 通过默认扬声器播放 signed 16-bit LE PCM。
// 阻塞直到所有字节都被设备取走，或 ctx 被取消。
// 设备无论成功与否都会在返回前释放。
func (p *Player) PlayPCM(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	devCtx := p.ctx.Context
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	pos := 0
	done := make(chan struct{})
	var once sync.Once

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = p.channels
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = 512
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			bytesNeeded := int(frameCount) * int(p.channels) * 2
			if bytesNeeded > len(outputSamples) {
				bytesNeeded = len(outputSamples)
			}
			if pos >= len(pcm) {
				// 数据已全部写出，填充静音
				clear(outputSamples[:bytesNeeded])
				once.Do(func() { close(done) })
				return
			}

			n := copy(outputSamples[:bytesNeeded], pcm[pos:])
			if n < bytesNeeded {
				clear(outputSamples[n:bytesNeeded])
			}
			pos += n
		},
	}

	device, err := malgo.InitDevice(devCtx, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("初始化播放设备失败: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("启动播放设备失败: %w", err)
	}
	defer device.Stop()

	logger.Debugf("[audio] 开始播放 %d 字节 PCM，采样率 %d Hz", len(pcm), sampleRate)

	select {
	case <-ctx.Done():
		logger.Infof("[audio] 播放被取消")
		return ctx.Err()
	case <-done:
		logger.Debugf("[audio] 播放完成")
		return nil
	}
}

// Close 拒绝新的播放，等待进行中的播放释放设备后再释放上下文。
func (p *Player) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
