package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/iabetor/pispeak/internal/logger"
	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
)

// DefaultEdgeVoice 是 Edge TTS 默认的土耳其语音色。
const DefaultEdgeVoice = "tr-TR-EmelNeural"

// EdgeEngine 使用微软 Edge TTS 实现语音合成，
// 通过 edge-tts-go 获取 MP3 音频，再用 go-mp3 解码为 PCM。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定语音的 Edge TTS 引擎。
func NewEdgeEngine(voice string) *EdgeEngine {
	if voice == "" {
		voice = DefaultEdgeVoice
	}
	return &EdgeEngine{voice: voice}
}

// Name 实现 Engine 接口。
func (e *EdgeEngine) Name() string { return "edge" }

// Synthesize 将文本合成为单声道 PCM。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) (*PCM, error) {
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), e.voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 创建实例失败: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("[tts] edge-tts 开始流式合成失败: %w", err)
	}

	data, err := collectEdgeAudio(ctx, ch)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("[tts] edge-tts: 未收到音频数据")
	}
	logger.Debugf("[tts] edge-tts: 收到 %d 字节 MP3 数据", len(data))

	return decodeMP3(data)
}

// collectEdgeAudio 拼接流中 type=="audio" 条目携带的 MP3 数据。
// ctx 结束时立即返回，剩余消息在后台继续消费，避免 edge-tts-go 的生产协程阻塞。
func collectEdgeAudio(ctx context.Context, ch <-chan map[string]interface{}) ([]byte, error) {
	var mp3Buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			go func() {
				for range ch {
				}
			}()
			return nil, fmt.Errorf("[tts] edge-tts 合成中断: %w", ctx.Err())
		case msg, ok := <-ch:
			if !ok {
				return mp3Buf.Bytes(), nil
			}
			if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
				if data, ok := msg["data"].([]byte); ok {
					mp3Buf.Write(data)
				}
			}
		}
	}
}
