package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pausecut/pausecut-api/internal/timing"
)

func TestRMSDecibels_AllZero(t *testing.T) {
	if got := RMSDecibels(silentPCM(1024)); got != -100.0 {
		t.Errorf("expected floor -100 for digital silence, got %f", got)
	}
}

func TestRMSDecibels_Empty(t *testing.T) {
	if got := RMSDecibels(nil); got != -100.0 {
		t.Errorf("expected floor -100 for empty payload, got %f", got)
	}
}

func TestRMSDecibels_FullScale(t *testing.T) {
	// A full-scale square wave has RMS 1.0, which is 0 dBFS.
	pcm := make([]byte, 1024*2)
	fullScale := int16(-32768)
	for i := 0; i < 1024; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(fullScale))
	}
	got := RMSDecibels(pcm)
	if math.Abs(got) > 0.01 {
		t.Errorf("expected ~0 dBFS for full-scale square wave, got %f", got)
	}
}

func TestRMSDecibels_HalfScale(t *testing.T) {
	// Constant half-scale amplitude is about -6.02 dBFS.
	pcm := make([]byte, 1024*2)
	for i := 0; i < 1024; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(16384)))
	}
	got := RMSDecibels(pcm)
	if math.Abs(got-(-6.02)) > 0.01 {
		t.Errorf("expected ~-6.02 dBFS, got %f", got)
	}
}

func TestClassifier_IsSilent(t *testing.T) {
	cls := NewClassifier(-35)
	dur := timing.FromSamples(1024, testSampleRate)

	loud := Frame{Duration: dur, Samples: 1024, PCM: tonePCM(1024)}
	if cls.IsSilent(loud) {
		t.Error("expected -12 dBFS tone to be sounding at a -35 threshold")
	}

	quiet := Frame{Duration: dur, Samples: 1024, PCM: silentPCM(1024)}
	if !cls.IsSilent(quiet) {
		t.Error("expected digital silence to be silent")
	}
}

func TestClassifier_ThresholdBoundary(t *testing.T) {
	// A frame exactly at the threshold is not silent; silence is strictly
	// below.
	cls := NewClassifier(-100)
	f := Frame{Samples: 1024, PCM: silentPCM(1024)}
	if cls.IsSilent(f) {
		t.Error("expected frame at the floor to be sounding against a -100 threshold")
	}
}
