package client

import (
	"context"
	"sync"
	"time"

	"github.com/rehearsal-dev/voicescreen/pkg/audio"
)

// playbackCap bounds the number of queued interviewer buffers. When the
// producer outpaces the consumer, the oldest queued buffer is dropped.
const playbackCap = 512

// drainPoll is how often a drain wait re-checks the queue.
const drainPoll = 50 * time.Millisecond

// DefaultDrainCeiling is the longest a caller will wait for playback to
// drain before opening capture anyway.
const DefaultDrainCeiling = 8 * time.Second

// PlayFunc renders one buffer of interviewer audio. It must block until
// the buffer has finished playing so consecutive buffers never overlap.
type PlayFunc func(chunk audio.AudioFrame)

// Playback is a bounded, strictly ordered queue of interviewer audio.
// Exactly one buffer plays at a time; the next starts when the previous
// finishes. All methods are safe for concurrent use.
type Playback struct {
	mu      sync.Mutex
	queue   []audio.AudioFrame
	playing bool
	wake    chan struct{}
}

// NewPlayback creates an empty playback queue.
func NewPlayback() *Playback {
	return &Playback{
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends one interviewer buffer. When the queue is full the
// oldest unplayed buffer is dropped.
func (p *Playback) Enqueue(chunk audio.AudioFrame) {
	p.mu.Lock()
	if len(p.queue) >= playbackCap {
		p.queue = p.queue[1:]
	}
	p.queue = append(p.queue, chunk)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Drained reports that nothing is playing and nothing is queued.
func (p *Playback) Drained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.playing && len(p.queue) == 0
}

// WaitDrained blocks until the queue drains, ctx ends, or the ceiling
// elapses. The ceiling exists so a stuck or very long utterance can never
// keep the candidate's microphone closed forever.
func (p *Playback) WaitDrained(ctx context.Context, ceiling time.Duration) {
	if ceiling <= 0 {
		ceiling = DefaultDrainCeiling
	}
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for !p.Drained() {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
		}
	}
}

// Run consumes the queue sequentially, rendering each buffer with play,
// until ctx is canceled. play blocks for the buffer's duration, which is
// what enforces no-overlap ordering.
func (p *Playback) Run(ctx context.Context, play PlayFunc) {
	for {
		chunk, ok := p.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
				continue
			}
		}

		play(chunk)

		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// next pops the head of the queue, marking playback in progress.
func (p *Playback) next() (audio.AudioFrame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return audio.AudioFrame{}, false
	}
	chunk := p.queue[0]
	p.queue = p.queue[1:]
	p.playing = true
	return chunk, true
}

// SleepPlay returns a [PlayFunc] that simulates audio hardware by sleeping
// for each buffer's real duration. Used by the reference client and tests.
func SleepPlay() PlayFunc {
	return func(chunk audio.AudioFrame) {
		time.Sleep(chunk.Duration())
	}
}
