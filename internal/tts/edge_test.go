package tts

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCollectEdgeAudio_ConcatenatesAudioChunks(t *testing.T) {
	ch := make(chan map[string]interface{}, 4)
	ch <- map[string]interface{}{"type": "audio", "data": []byte("ab")}
	ch <- map[string]interface{}{"type": "WordBoundary", "offset": 100}
	ch <- map[string]interface{}{"type": "audio", "data": []byte("cd")}
	close(ch)

	data, err := collectEdgeAudio(context.Background(), ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "abcd" {
		t.Errorf("expected abcd, got %q", data)
	}
}

func TestCollectEdgeAudio_CancelKeepsDrainingProducer(t *testing.T) {
	ch := make(chan map[string]interface{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := collectEdgeAudio(ctx, ch); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// 生产者在取消后仍能写完并关闭通道
	produced := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			ch <- map[string]interface{}{"type": "audio", "data": []byte{byte(i)}}
		}
		close(ch)
		close(produced)
	}()

	select {
	case <-produced:
	case <-time.After(time.Second):
		t.Fatal("producer blocked after cancellation")
	}
}
