package tts

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/iabetor/pispeak/internal/audio"
)

// decodeMP3 将 MP3 数据解码为单声道 signed 16-bit LE PCM。
// go-mp3 总是输出立体声，需要下混为单声道。
func decodeMP3(data []byte) (*PCM, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("[tts] MP3 解码失败: %w", err)
	}

	stereo, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("[tts] 读取 PCM 数据失败: %w", err)
	}

	return &PCM{
		Data:       audio.StereoS16ToMono(stereo),
		SampleRate: decoder.SampleRate(),
	}, nil
}
