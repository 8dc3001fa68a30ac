package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOddLength 表示 PCM 字节数不是 2 的整数倍，末尾存在不成对的字节。
var ErrOddLength = errors.New("PCM 字节数为奇数")

// BytesToInt16 将 signed 16-bit 小端字节切片转换为 int16 样本。
// 字节数为奇数时返回 ErrOddLength，不做截断。
func BytesToInt16(b []byte) ([]int16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("%w: %d 字节", ErrOddLength, len(b))
	}
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out, nil
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// ScaleSample 返回 clamp(round(s*volume), -32768, 32767)。
// 超出范围时饱和而不是回绕；结果为 NaN 时视为静音。
// 第二个返回值表示是否发生了钳位。
func ScaleSample(s int16, volume float64) (int16, bool) {
	v := math.Round(float64(s) * volume)
	switch {
	case math.IsNaN(v):
		return 0, false
	case v > math.MaxInt16:
		return math.MaxInt16, true
	case v < math.MinInt16:
		return math.MinInt16, true
	}
	return int16(v), false
}

// ScaleInt16 按 volume 缩放全部样本，返回新切片和被钳位的样本数。
// volume 为 1 时直接复制，不做任何修改。
func ScaleInt16(in []int16, volume float64) ([]int16, int) {
	out := make([]int16, len(in))
	if volume == 1 {
		copy(out, in)
		return out, 0
	}
	clipped := 0
	for i, s := range in {
		v, c := ScaleSample(s, volume)
		out[i] = v
		if c {
			clipped++
		}
	}
	return out, clipped
}

// ScalePCM 便捷函数：解析原始 PCM 字节、缩放后重新序列化。
func ScalePCM(pcm []byte, volume float64) ([]byte, int, error) {
	samples, err := BytesToInt16(pcm)
	if err != nil {
		return nil, 0, err
	}
	scaled, clipped := ScaleInt16(samples, volume)
	return Int16ToBytes(scaled), clipped, nil
}

// StereoS16ToMono 将交错的立体声 signed 16-bit LE PCM 转为单声道。
// 左右声道取平均，不完整的尾部帧被丢弃。
func StereoS16ToMono(data []byte) []byte {
	const bytesPerFrame = 4
	numFrames := len(data) / bytesPerFrame
	out := make([]byte, numFrames*2)
	for i := 0; i < numFrames; i++ {
		offset := i * bytesPerFrame
		left := int32(int16(binary.LittleEndian.Uint16(data[offset:])))
		right := int32(int16(binary.LittleEndian.Uint16(data[offset+2:])))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16((left+right)/2)))
	}
	return out
}

// Float32ToInt16Bytes 将 [-1, 1] 范围的 float32 样本转换为 signed 16-bit LE PCM。
// 超出范围的样本饱和，返回被钳位的样本数。
func Float32ToInt16Bytes(samples []float32) ([]byte, int) {
	out := make([]byte, len(samples)*2)
	clipped := 0
	for i, f := range samples {
		v, c := ScaleSample(1, float64(f)*math.MaxInt16)
		if c {
			clipped++
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out, clipped
}
