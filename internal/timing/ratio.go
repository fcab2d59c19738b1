// Package timing provides exact rational time values for frame timestamps.
// Removing gaps from a timeline means subtracting the same offset from
// thousands of timestamps; float64 seconds accumulate drift under that kind
// of repeated arithmetic, a rational does not.
package timing

import (
	"fmt"
	"time"
)

// Ratio is an exact rational number of seconds. The zero value is 0s.
// Values are kept normalized: the denominator is always positive and the
// numerator and denominator share no common factor.
type Ratio struct {
	num int64
	den int64
}

// Zero is the zero duration.
var Zero = Ratio{}

// New returns num/den seconds. It panics if den is zero; a zero denominator
// is always a programming error, never input-dependent.
func New(num, den int64) Ratio {
	if den == 0 {
		panic("timing: zero denominator")
	}
	return Ratio{num: num, den: den}.normalize()
}

// FromSamples returns the duration of n samples at the given sample rate.
func FromSamples(n int64, sampleRate int) Ratio {
	return New(n, int64(sampleRate))
}

// FromDuration converts a time.Duration to an exact Ratio.
func FromDuration(d time.Duration) Ratio {
	return New(d.Nanoseconds(), int64(time.Second))
}

// FromSeconds converts a float64 second count to a Ratio with microsecond
// resolution. Used only at configuration and byte-budget boundaries where
// the input is inherently approximate; frame timestamps never pass through
// here.
func FromSeconds(s float64) Ratio {
	return New(int64(s*1e6), 1e6)
}

func (r Ratio) normalize() Ratio {
	if r.den == 0 {
		// Zero value: treat as 0/1.
		return Ratio{num: 0, den: 1}
	}
	if r.den < 0 {
		r.num = -r.num
		r.den = -r.den
	}
	g := gcd(abs(r.num), r.den)
	if g > 1 {
		r.num /= g
		r.den /= g
	}
	return r
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func (r Ratio) numDen() (int64, int64) {
	if r.den == 0 {
		return 0, 1
	}
	return r.num, r.den
}

// Add returns r + o.
func (r Ratio) Add(o Ratio) Ratio {
	rn, rd := r.numDen()
	on, od := o.numDen()
	return Ratio{num: rn*od + on*rd, den: rd * od}.normalize()
}

// Sub returns r - o.
func (r Ratio) Sub(o Ratio) Ratio {
	rn, rd := r.numDen()
	on, od := o.numDen()
	return Ratio{num: rn*od - on*rd, den: rd * od}.normalize()
}

// Cmp compares r and o, returning -1, 0, or +1.
func (r Ratio) Cmp(o Ratio) int {
	rn, rd := r.numDen()
	on, od := o.numDen()
	lhs := rn * od
	rhs := on * rd
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Less reports whether r < o.
func (r Ratio) Less(o Ratio) bool { return r.Cmp(o) < 0 }

// IsZero reports whether r is exactly zero.
func (r Ratio) IsZero() bool {
	n, _ := r.numDen()
	return n == 0
}

// IsNegative reports whether r is below zero.
func (r Ratio) IsNegative() bool {
	n, _ := r.numDen()
	return n < 0
}

// Seconds returns r as a float64 second count.
func (r Ratio) Seconds() float64 {
	n, d := r.numDen()
	return float64(n) / float64(d)
}

// Duration returns r as a time.Duration, rounded to nanoseconds.
func (r Ratio) Duration() time.Duration {
	n, d := r.numDen()
	return time.Duration(n * int64(time.Second) / d)
}

// Min returns the smaller of a and b.
func Min(a, b Ratio) Ratio {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Ratio) Ratio {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Clamp limits r to the inclusive range [lo, hi].
func Clamp(r, lo, hi Ratio) Ratio {
	return Max(lo, Min(r, hi))
}

// String renders r as seconds with the exact fraction, e.g. "1.500s (3/2)".
func (r Ratio) String() string {
	n, d := r.numDen()
	return fmt.Sprintf("%.6fs (%d/%d)", r.Seconds(), n, d)
}
