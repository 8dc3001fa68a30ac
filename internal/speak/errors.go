package speak

import (
	"errors"
	"fmt"
)

// Kind 区分播报失败发生在哪个阶段。
type Kind int

const (
	// KindEngine 表示语音合成引擎失败：子进程非零退出、启动失败或输出格式错误。
	KindEngine Kind = iota + 1
	// KindPlayback 表示音频设备不可用或写入失败。
	KindPlayback
)

func (k Kind) String() string {
	switch k {
	case KindEngine:
		return "engine_failure"
	case KindPlayback:
		return "playback_failure"
	default:
		return "unknown"
	}
}

var (
	// ErrEngine 可用于 errors.Is 判断合成阶段的失败。
	ErrEngine = errors.New("语音合成失败")
	// ErrPlayback 可用于 errors.Is 判断播放阶段的失败。
	ErrPlayback = errors.New("音频播放失败")
)

// Error 是 Speak 返回的错误类型，携带失败阶段和原始错误。
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrEngine) 这类判断按阶段匹配。
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	if e.Kind == KindPlayback {
		return ErrPlayback
	}
	return ErrEngine
}

func engineError(err error) error { return &Error{Kind: KindEngine, Err: err} }

func playbackError(err error) error { return &Error{Kind: KindPlayback, Err: err} }

// KindOf 返回错误所属的阶段，非 *Error 返回 0。
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
