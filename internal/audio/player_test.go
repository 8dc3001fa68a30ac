package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPlayer_EmptyPCMIsNoop(t *testing.T) {
	// 空数据不会触碰设备，零值 Player 即可
	p := &Player{channels: 1}
	if err := p.PlayPCM(context.Background(), nil, 22050); err != nil {
		t.Fatalf("expected nil error for empty PCM, got %v", err)
	}
}

func TestPlayer_ClosedRejectsPlayback(t *testing.T) {
	p := &Player{channels: 1, closed: true}
	err := p.PlayPCM(context.Background(), []byte{0, 0}, 22050)
	if !errors.Is(err, ErrPlayerClosed) {
		t.Fatalf("expected ErrPlayerClosed, got %v", err)
	}
}

func TestPlayer_CloseIsIdempotent(t *testing.T) {
	p := &Player{channels: 1}
	p.Close()
	p.Close()
	if !p.closed {
		t.Fatal("expected player to be marked closed")
	}
}

func TestPlayer_CloseWaitsForInflightPlayback(t *testing.T) {
	p := &Player{channels: 1}
	// 模拟一次尚未释放设备的播放
	p.inflight.Add(1)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while playback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	if err := p.PlayPCM(context.Background(), []byte{0, 0}, 22050); !errors.Is(err, ErrPlayerClosed) {
		t.Errorf("expected new playback to be rejected during Close, got %v", err)
	}

	p.inflight.Done()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after playback finished")
	}
}

var _ Sink = (*Player)(nil)
