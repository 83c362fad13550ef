// Command interviewctl is a terminal client for exercising a voicescreen
// server end to end: it dials the interview endpoint, plays a PCM file in
// place of a microphone, and prints the questions and the final verdict.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rehearsal-dev/voicescreen/internal/client"
	"github.com/rehearsal-dev/voicescreen/internal/config"
	"github.com/rehearsal-dev/voicescreen/internal/protocol"
	"github.com/rehearsal-dev/voicescreen/pkg/audio"
	"github.com/rehearsal-dev/voicescreen/pkg/vad"
)

// frameDuration is the synthetic microphone's frame size.
const frameDuration = 30 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	url := flag.String("url", "ws://localhost:8080/ws/interview", "interview WebSocket endpoint")
	company := flag.String("company", "Acme", "company name for the handshake")
	role := flag.String("role", "software engineer", "role for the handshake")
	audioPath := flag.String("audio", "", "raw PCM16LE mono file looped as the microphone signal; empty feeds silence")
	micRate := flag.Int("mic-rate", protocol.CaptureSampleRate, "sample rate of the -audio file; resampled to 16kHz when it differs")
	configPath := flag.String("config", "", "optional YAML config; its vad section tunes the local detector")
	flag.Parse()

	var vadCfg vad.Config
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "interviewctl: %v\n", err)
			return 1
		}
		vadCfg = detectorConfig(cfg.VAD)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mic []byte
	if *audioPath != "" {
		data, err := os.ReadFile(*audioPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "interviewctl: %v\n", err)
			return 1
		}
		mic = audio.ResampleMono16(data, *micRate, protocol.CaptureSampleRate)
	}

	c, err := client.Dial(ctx, client.Config{
		URL:     *url,
		Company: *company,
		Role:    *role,
		VAD:     vadCfg,
		OnQuestion: func(content string, number, total int) {
			fmt.Printf("\n[question %d/%d] %s\n", number, total, content)
		},
		OnResume: func(reason string) {
			fmt.Printf("[retry requested: %s]\n", reason)
		},
		OnReviewing: func() {
			fmt.Println("\n[reviewing answers...]")
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "interviewctl: %v\n", err)
		return 1
	}

	go feedMicrophone(ctx, c, mic)

	result, err := c.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "interviewctl: %v\n", err)
		return 1
	}

	fmt.Printf("\nscore: %d/100 (%s)\n", result.Score, result.ScoringVersion)
	if result.Disqualified {
		fmt.Println("result: disqualified")
	}
	for name, set := range result.Flags {
		if set {
			fmt.Printf("flag: %s\n", name)
		}
	}
	return 0
}

// detectorConfig maps the config file's vad section onto the detector's
// knobs, leaving zero values to the detector's defaults.
func detectorConfig(v config.VADConfig) vad.Config {
	return vad.Config{
		SampleRate:           protocol.CaptureSampleRate,
		BaseThreshold:        v.BaseThreshold,
		NoiseFloorMultiplier: v.NoiseFloorMultiplier,
		SpeechConfirm:        v.SpeechConfirm,
		PreRollFrames:        v.PreRollFrames,
		SilenceTimeout:       v.SilenceTimeout,
		MinTurn:              v.MinTurn,
	}
}

// feedMicrophone paces frames from the recorded signal (looped) into the
// capture pipeline in real time. Silence is fed when no file was given so
// the detector can still measure a noise floor and time out turns.
func feedMicrophone(ctx context.Context, c *client.Client, mic []byte) {
	frameBytes := int(frameDuration.Seconds() * protocol.CaptureSampleRate * 2)
	silence := make([]byte, frameBytes)

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !c.Capturing() {
			continue
		}

		pcm := silence
		if len(mic) >= frameBytes {
			if offset+frameBytes > len(mic) {
				offset = 0
			}
			pcm = mic[offset : offset+frameBytes]
			offset += frameBytes
		}

		err := c.Feed(audio.AudioFrame{
			PCM:        pcm,
			SampleRate: protocol.CaptureSampleRate,
			Direction:  audio.Outbound,
		})
		if err != nil {
			slog.Warn("dropped microphone frame", "error", err)
		}
	}
}
