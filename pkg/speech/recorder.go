//go:build whisper

package speech

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Capture runs at 16 kHz mono, the rate whisper expects.
const (
	sampleRate       = 16000
	frameSize        = 320 // 20ms
	silenceThreshRMS = 0.015
	trailingSilence  = 600 * time.Millisecond
)

// Recorder captures audio from the default input device.
type Recorder struct{}

// NewRecorder initializes portaudio.
func NewRecorder() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &Recorder{}, nil
}

// Close terminates portaudio.
func (r *Recorder) Close() error {
	return portaudio.Terminate()
}

// Record waits up to wait for speech to start, then records until a pause
// or until limit has elapsed. It returns no samples when nothing was said.
func (r *Recorder) Record(ctx context.Context, wait, limit time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frameDur := time.Second * frameSize / sampleRate
	waitFrames := int(wait / frameDur)
	limitFrames := int(limit / frameDur)
	silenceFrames := int(trailingSilence / frameDur)

	var (
		speaking bool
		quiet    int
		spoken   int
	)

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		loud := frameRMS(buf) > silenceThreshRMS

		if !speaking {
			if !loud {
				if waitFrames > 0 && i >= waitFrames {
					return nil, nil
				}
				continue
			}
			speaking = true
		}

		out = append(out, buf...)
		spoken++

		if loud {
			quiet = 0
		} else if quiet++; quiet >= silenceFrames {
			break
		}
		if limitFrames > 0 && spoken >= limitFrames {
			break
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
