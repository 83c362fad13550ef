package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rehearsal-dev/voicescreen/pkg/audio"
)

func playbackFrame(tag byte, ms int) audio.AudioFrame {
	pcm := make([]byte, ms*48) // 24kHz PCM16 mono
	if len(pcm) > 0 {
		pcm[0] = tag
	}
	return audio.AudioFrame{
		PCM:        pcm,
		SampleRate: 24000,
		Direction:  audio.Inbound,
	}
}

func TestPlaybackOrdering(t *testing.T) {
	t.Parallel()

	p := NewPlayback()
	for i := byte(1); i <= 5; i++ {
		p.Enqueue(playbackFrame(i, 1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		played []byte
	)
	go p.Run(ctx, func(chunk audio.AudioFrame) {
		mu.Lock()
		played = append(played, chunk.PCM[0])
		if len(played) == 5 {
			cancel()
		}
		mu.Unlock()
	})

	p.WaitDrained(ctx, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(played) != 5 {
		t.Fatalf("played %d chunks, want 5", len(played))
	}
	for i, tag := range played {
		if tag != byte(i+1) {
			t.Fatalf("playback order = %v", played)
		}
	}
}

func TestPlaybackDrained(t *testing.T) {
	t.Parallel()

	p := NewPlayback()
	if !p.Drained() {
		t.Fatal("empty queue not drained")
	}
	p.Enqueue(playbackFrame(1, 1))
	if p.Drained() {
		t.Fatal("queue with a pending chunk reported drained")
	}
}

func TestWaitDrainedCompletes(t *testing.T) {
	t.Parallel()

	p := NewPlayback()
	for i := byte(1); i <= 3; i++ {
		p.Enqueue(playbackFrame(i, 5))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, SleepPlay())

	p.WaitDrained(ctx, 5*time.Second)
	if !p.Drained() {
		t.Fatal("queue not drained after WaitDrained returned")
	}
}

func TestWaitDrainedCeiling(t *testing.T) {
	t.Parallel()

	p := NewPlayback()
	p.Enqueue(playbackFrame(1, 1))
	// No consumer: the ceiling must bound the wait.
	start := time.Now()
	p.WaitDrained(context.Background(), 150*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("WaitDrained blocked for %v", elapsed)
	}
	if p.Drained() {
		t.Fatal("queue drained without a consumer")
	}
}

func TestWaitDrainedCanceledContext(t *testing.T) {
	t.Parallel()

	p := NewPlayback()
	p.Enqueue(playbackFrame(1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	p.WaitDrained(ctx, time.Minute)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("WaitDrained ignored cancellation for %v", elapsed)
	}
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	p := NewPlayback()
	for i := 0; i < playbackCap+1; i++ {
		tag := byte(1)
		if i == 0 {
			tag = 0xFF
		}
		p.Enqueue(audio.AudioFrame{PCM: []byte{tag}, SampleRate: 24000})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) != playbackCap {
		t.Fatalf("queue length = %d, want %d", len(p.queue), playbackCap)
	}
	if p.queue[0].PCM[0] == 0xFF {
		t.Fatal("oldest chunk not dropped")
	}
}
