package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays synthesized audio on the default output device.
// Calls to Play are serialized; the speaker is initialized on first use at
// the sample rate of the first clip and later clips are resampled to it.
type Player struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	ready      bool
	logger     *slog.Logger
}

// NewPlayer creates a player.
func NewPlayer() *Player {
	return &Player{logger: slog.Default().With("component", "tts.player")}
}

// NewPlayerWithLogger creates a player with a custom logger.
func NewPlayerWithLogger(logger *slog.Logger) *Player {
	return &Player{logger: logger.With("component", "tts.player")}
}

// Play decodes res and blocks until it has finished playing or ctx is done.
func (p *Player) Play(ctx context.Context, res *AudioResult) error {
	streamer, format, err := Decode(res)
	if err != nil {
		return err
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("tts: init speaker: %w", err)
		}
		p.sampleRate = format.SampleRate
		p.ready = true
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		s = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Decode returns a streamer for res according to its encoding.
func Decode(res *AudioResult) (beep.StreamSeekCloser, beep.Format, error) {
	if res == nil || len(res.Audio) == 0 {
		return nil, beep.Format{}, fmt.Errorf("tts: decode: %w", ErrEmptyText)
	}

	switch res.Format.Encoding {
	case EncodingMP3:
		return mp3.Decode(io.NopCloser(bytes.NewReader(res.Audio)))
	case EncodingWAV:
		return wav.Decode(bytes.NewReader(res.Audio))
	case EncodingPCM:
		return decodePCM(res)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, res.Format.Encoding)
	}
}

func decodePCM(res *AudioResult) (beep.StreamSeekCloser, beep.Format, error) {
	if res.Format.SampleRate <= 0 {
		return nil, beep.Format{}, fmt.Errorf("%w: pcm without sample rate", ErrUnsupportedFormat)
	}
	channels := res.Format.Channels
	if channels <= 0 {
		channels = 1
	}
	if channels > 2 {
		return nil, beep.Format{}, fmt.Errorf("%w: pcm with %d channels", ErrUnsupportedFormat, channels)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(res.Format.SampleRate),
		NumChannels: channels,
		Precision:   2,
	}
	return &pcmStreamer{data: res.Audio, frame: 2 * channels}, format, nil
}

// pcmStreamer plays signed 16-bit little-endian frames from memory.
// A trailing partial frame is ignored.
type pcmStreamer struct {
	data  []byte
	frame int // bytes per frame
	pos   int // frames played
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) && s.pos < s.Len() {
		off := s.pos * s.frame
		left := float64(int16(binary.LittleEndian.Uint16(s.data[off:]))) / 32768
		right := left
		if s.frame == 4 {
			right = float64(int16(binary.LittleEndian.Uint16(s.data[off+2:]))) / 32768
		}
		samples[n] = [2]float64{left, right}
		n++
		s.pos++
	}
	return n, n > 0
}

func (s *pcmStreamer) Err() error { return nil }

func (s *pcmStreamer) Len() int { return len(s.data) / s.frame }

func (s *pcmStreamer) Position() int { return s.pos }

func (s *pcmStreamer) Seek(p int) error {
	if p < 0 || p > s.Len() {
		return fmt.Errorf("tts: seek %d out of range [0, %d]", p, s.Len())
	}
	s.pos = p
	return nil
}

func (s *pcmStreamer) Close() error { return nil }
