package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rehearsal-dev/voicescreen/internal/protocol"
	"github.com/rehearsal-dev/voicescreen/pkg/audio"
	"github.com/rehearsal-dev/voicescreen/pkg/vad"
)

// defaultOutputRate is assumed for interviewer audio when a message omits
// its sample rate.
const defaultOutputRate = 24000

// Result is the interview's terminal outcome as reported by the server.
type Result struct {
	Score          int
	Disqualified   bool
	Flags          map[string]bool
	ScoringVersion string
}

// Config configures a [Client].
type Config struct {
	// URL is the interview WebSocket endpoint, e.g.
	// "ws://localhost:8080/ws/interview".
	URL string

	// Company and Role are sent in the handshake.
	Company string
	Role    string

	// VAD configures the capture pipeline's detector.
	VAD vad.Config

	// Play renders interviewer audio. Nil means [SleepPlay], which paces
	// playback in real time without hardware.
	Play PlayFunc

	// DrainCeiling bounds the wait for playback to finish before the
	// microphone opens anyway. Zero means [DefaultDrainCeiling].
	DrainCeiling time.Duration

	// OnQuestion is called with each canonical question. Optional.
	OnQuestion func(content string, number, total int)

	// OnResume is called when the server asks for the answer again.
	// Optional.
	OnResume func(reason string)

	// OnReviewing is called when finalization starts. Optional.
	OnReviewing func()

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Client is the candidate side of one interview session. Feed microphone
// frames in with [Client.Feed]; [Client.Run] drives the transport until
// the interview completes or fails.
type Client struct {
	cfg      Config
	log      *slog.Logger
	conn     *websocket.Conn
	capture  *Capture
	playback *Playback

	mu     sync.Mutex
	result *Result
}

// errDone signals a clean interview completion through the errgroup.
var errDone = errors.New("interview complete")

// Dial connects to the interview endpoint and sends the handshake.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Play == nil {
		cfg.Play = SleepPlay()
	}

	conn, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", cfg.URL, err)
	}

	c := &Client{
		cfg:      cfg,
		log:      log,
		conn:     conn,
		capture:  NewCapture(cfg.VAD),
		playback: NewPlayback(),
	}

	data, err := protocol.Encode(protocol.Handshake(cfg.Company, cfg.Role))
	if err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("client: send handshake: %w", err)
	}
	return c, nil
}

// Feed pushes one microphone frame into the capture pipeline. Safe to call
// from an audio callback: the work is bounded and never blocks.
func (c *Client) Feed(frame audio.AudioFrame) error {
	return c.capture.ProcessFrame(frame)
}

// Capturing reports whether the candidate's microphone is currently open.
func (c *Client) Capturing() bool {
	return c.capture.Enabled()
}

// Run processes the session until it completes, fails, or ctx ends. On
// clean completion it returns the server's verdict.
func (c *Client) Run(ctx context.Context) (*Result, error) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.playback.Run(gctx, c.cfg.Play)
		return nil
	})
	g.Go(func() error {
		return c.writeLoop(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return c.readLoop(gctx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, errDone) && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil, fmt.Errorf("client: session ended without a verdict")
	}
	return c.result, nil
}

// writeLoop forwards capture output to the transport.
func (c *Client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-c.capture.Messages():
			data, err := protocol.Encode(msg)
			if err != nil {
				return err
			}
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return fmt.Errorf("client: send %s: %w", msg.Type, err)
			}
		}
	}
}

// readLoop decodes and dispatches server messages.
func (c *Client) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: read: %w", err)
		}

		msg, err := protocol.DecodeServer(data)
		if err != nil {
			c.log.Warn("dropping undecodable server message", "error", err)
			continue
		}

		done, err := c.handleServer(ctx, msg)
		if err != nil {
			return err
		}
		if done {
			return errDone
		}
	}
}

func (c *Client) handleServer(ctx context.Context, msg *protocol.ServerMessage) (done bool, err error) {
	switch msg.Type {
	case protocol.TypeQuestion:
		// A question also means "stop any recording now".
		c.capture.Close()
		c.log.Info("question received",
			"question_number", msg.QuestionNumber,
			"total_questions", msg.TotalQuestions)
		if c.cfg.OnQuestion != nil {
			c.cfg.OnQuestion(msg.Content, msg.QuestionNumber, msg.TotalQuestions)
		}

	case protocol.TypeServerAudio:
		pcm, err := msg.PCM()
		if err != nil {
			c.log.Warn("dropping malformed interviewer audio", "error", err)
			return false, nil
		}
		rate := msg.SampleRate
		if rate <= 0 {
			rate = defaultOutputRate
		}
		c.playback.Enqueue(audio.AudioFrame{
			PCM:        pcm,
			SampleRate: rate,
			Direction:  audio.Inbound,
		})

	case protocol.TypeTurnComplete:
		go c.openAfterDrain(ctx)

	case protocol.TypeResumeListening:
		c.log.Info("retrying answer", "reason", msg.Reason)
		if c.cfg.OnResume != nil {
			c.cfg.OnResume(msg.Reason)
		}
		go c.openAfterDrain(ctx)

	case protocol.TypeReviewing:
		c.capture.Close()
		if c.cfg.OnReviewing != nil {
			c.cfg.OnReviewing()
		}

	case protocol.TypeInterviewComplete:
		res := &Result{
			Flags:          msg.Flags,
			ScoringVersion: msg.ScoringVersion,
		}
		if msg.Score != nil {
			res.Score = *msg.Score
		}
		if msg.Disqualified != nil {
			res.Disqualified = *msg.Disqualified
		}
		c.mu.Lock()
		c.result = res
		c.mu.Unlock()
		return true, nil

	case protocol.TypeError:
		return false, fmt.Errorf("client: interview failed: %s", msg.Message)
	}
	return false, nil
}

// openAfterDrain opens the microphone once interviewer playback has
// finished, with a bounded wait so it can never stay closed forever.
func (c *Client) openAfterDrain(ctx context.Context) {
	c.playback.WaitDrained(ctx, c.cfg.DrainCeiling)
	if ctx.Err() != nil {
		return
	}
	c.capture.Open()
}
