package cue

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"markestedt/shortcutai/pipeline"
)

func TestFor(t *testing.T) {
	tests := []struct {
		outcome pipeline.Outcome
		want    Cue
		ok      bool
	}{
		{pipeline.OutcomeDelivered, Delivered, true},
		{pipeline.OutcomeTransformFailed, Failed, true},
		{pipeline.OutcomeEmptyResult, Failed, true},
		{pipeline.OutcomeFailed, Failed, true},
		{pipeline.OutcomeCancelled, Cue{}, false},
		{pipeline.OutcomeNoPresets, Cue{}, false},
		{pipeline.OutcomeEmptyCapture, Cue{}, false},
	}
	for _, tt := range tests {
		got, ok := For(tt.outcome)
		if got != tt.want || ok != tt.ok {
			t.Errorf("For(%s) = %+v, %v; want %+v, %v", tt.outcome, got, ok, tt.want, tt.ok)
		}
	}
}

func samples(buf []byte) []int16 {
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return out
}

func TestTone(t *testing.T) {
	c := Cue{Frequency: 440, Duration: 100 * time.Millisecond}
	s := samples(Tone(c, 0.5))

	if len(s) != 4410 {
		t.Fatalf("expected 4410 samples, got %d", len(s))
	}
	if s[0] != 0 || s[len(s)-1] != 0 {
		t.Fatalf("tone does not fade to silence at the edges: %d, %d", s[0], s[len(s)-1])
	}

	peak := 0
	for _, v := range s {
		if int(v) > peak {
			peak = int(v)
		}
	}
	limit := math.MaxInt16 / 2
	if peak > limit || peak < limit*9/10 {
		t.Fatalf("peak %d outside expected range (limit %d)", peak, limit)
	}
}

func TestToneClampsVolume(t *testing.T) {
	for _, v := range samples(Tone(Delivered, -1)) {
		if v != 0 {
			t.Fatal("negative volume must render silence")
		}
	}
}

func TestFillDrainsQueue(t *testing.T) {
	p := &Player{volume: 1}
	p.Play(Cue{Frequency: 440, Duration: time.Millisecond})
	queued := len(p.pending)

	out := make([]byte, queued+8)
	for i := range out {
		out[i] = 0xff
	}
	p.fill(out)

	if len(p.pending) != 0 {
		t.Fatalf("%d bytes left in queue", len(p.pending))
	}
	for _, b := range out[queued:] {
		if b != 0 {
			t.Fatal("tail not zero filled")
		}
	}

	p.fill(out)
	for _, b := range out {
		if b != 0 {
			t.Fatal("empty queue must produce silence")
		}
	}
}

func TestRecordRunQueuesOnlyAudibleOutcomes(t *testing.T) {
	p := &Player{volume: 1}
	p.RecordRun(pipeline.Run{Outcome: pipeline.OutcomeCancelled})
	if len(p.pending) != 0 {
		t.Fatal("cancelled run queued a tone")
	}
	p.RecordRun(pipeline.Run{Outcome: pipeline.OutcomeDelivered})
	if len(p.pending) != len(Tone(Delivered, 1)) {
		t.Fatal("delivered run did not queue its tone")
	}
}
