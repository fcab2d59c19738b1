package audio

import (
	"encoding/binary"
	"math"
)

const (
	// maxSampleValue is the maximum absolute value for 16-bit signed audio.
	maxSampleValue = 32768.0
	// silenceFloorDB is reported for an all-zero frame instead of -Inf.
	silenceFloorDB = -100.0
)

// Classifier decides whether a frame counts as silence based on its RMS
// energy in decibels relative to full scale.
type Classifier struct {
	thresholdDB float64
}

// NewClassifier creates a classifier with the given dBFS threshold.
// Frames whose RMS level is below the threshold are silent.
func NewClassifier(thresholdDB float64) Classifier {
	return Classifier{thresholdDB: thresholdDB}
}

// IsSilent reports whether the frame's energy is below the threshold.
func (c Classifier) IsSilent(f Frame) bool {
	return RMSDecibels(f.PCM) < c.thresholdDB
}

// Threshold returns the configured dBFS threshold.
func (c Classifier) Threshold() float64 {
	return c.thresholdDB
}

// RMSDecibels computes the RMS level of S16LE PCM data in dBFS.
// Samples are normalized to [-1, 1] before squaring. An empty or all-zero
// payload maps to the floor value rather than -Inf.
func RMSDecibels(pcm []byte) float64 {
	var sumSquares float64
	var count int
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / maxSampleValue
		sumSquares += s * s
		count++
	}
	if count == 0 || sumSquares == 0 {
		return silenceFloorDB
	}
	rms := math.Sqrt(sumSquares / float64(count))
	db := 20 * math.Log10(rms)
	if db < silenceFloorDB {
		return silenceFloorDB
	}
	return db
}
