// Package cue plays short tones when a pipeline run finishes.
package cue

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"markestedt/shortcutai/pipeline"
)

const (
	sampleRate     = 44100
	channels       = 1
	bytesPerSample = 2
)

// A Cue is one tone.
type Cue struct {
	Frequency float64
	Duration  time.Duration
}

var (
	// Delivered plays after a result reached its destination.
	Delivered = Cue{Frequency: 880, Duration: 120 * time.Millisecond}
	// Failed plays when the transform or delivery failed.
	Failed = Cue{Frequency: 330, Duration: 220 * time.Millisecond}
)

// For returns the cue for a run outcome. Runs the user abandoned, or that
// never reached the transform, stay silent.
func For(outcome pipeline.Outcome) (Cue, bool) {
	switch outcome {
	case pipeline.OutcomeDelivered:
		return Delivered, true
	case pipeline.OutcomeTransformFailed, pipeline.OutcomeEmptyResult, pipeline.OutcomeFailed:
		return Failed, true
	}
	return Cue{}, false
}

// Player owns a playback device that stays open and plays queued tones.
type Player struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	mu      sync.Mutex
	pending []byte
	volume  float64
}

// NewPlayer opens the default playback device.
func NewPlayer(volume float64) (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	p := &Player{malgoCtx: ctx, volume: volume}

	if err := p.initDevice(); err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return p, nil
}

// initDevice initializes and starts the playback device (called once at startup)
func (p *Player) initDevice() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = channels
	deviceConfig.SampleRate = sampleRate
	deviceConfig.Alsa.NoMMap = 1

	// Always running; writes silence when nothing is queued
	onData := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		p.fill(pOutputSample)
	}

	var err error
	p.device, err = malgo.InitDevice(p.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := p.device.Start(); err != nil {
		p.device.Uninit()
		p.device = nil
		return fmt.Errorf("failed to start device: %w", err)
	}

	return nil
}

// fill copies queued samples into out and zeroes the rest.
func (p *Player) fill(out []byte) {
	p.mu.Lock()
	n := copy(out, p.pending)
	p.pending = p.pending[n:]
	p.mu.Unlock()

	clear(out[n:])
}

// Play queues c, replacing anything still playing.
func (p *Player) Play(c Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = Tone(c, p.volume)
}

// SetVolume changes the volume of subsequent cues.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

// RecordRun plays the cue for r's outcome, if any.
func (p *Player) RecordRun(r pipeline.Run) {
	if c, ok := For(r.Outcome); ok {
		p.Play(c)
	}
}

// Close releases resources
func (p *Player) Close() error {
	// The data callback takes mu, so the device is stopped without holding it
	p.mu.Lock()
	device, ctx := p.device, p.malgoCtx
	p.device, p.malgoCtx = nil, nil
	p.mu.Unlock()

	if device != nil {
		device.Stop()
		device.Uninit()
	}

	if ctx != nil {
		_ = ctx.Uninit()
		ctx.Free()
	}

	return nil
}

// Tone renders c as 16-bit little-endian mono PCM at the player's sample
// rate. A short linear fade at both ends avoids clicks.
func Tone(c Cue, volume float64) []byte {
	volume = math.Max(0, math.Min(1, volume))
	numSamples := int(c.Duration.Seconds() * sampleRate)
	fade := sampleRate / 200 // 5ms
	if fade > numSamples/2 {
		fade = numSamples / 2
	}

	buf := make([]byte, numSamples*bytesPerSample)
	for i := 0; i < numSamples; i++ {
		env := 1.0
		if i < fade {
			env = float64(i) / float64(fade)
		} else if i >= numSamples-fade {
			env = float64(numSamples-1-i) / float64(fade)
		}
		v := math.Sin(2*math.Pi*c.Frequency*float64(i)/sampleRate) * env * volume * math.MaxInt16
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return buf
}
