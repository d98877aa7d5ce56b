package anomaly

import "math"

// Window is a fixed-capacity ring buffer of float64 samples with running
// sums, so mean and standard deviation are O(1) per observation.
// Window is not safe for concurrent use; Registry adds the locking.
type Window struct {
	samples []float64
	head    int
	count   int
	sum     float64
	sumSq   float64
}

// NewWindow creates a window holding at most capacity samples.
// Capacity below 2 is raised to 2; a single sample has no spread.
func NewWindow(capacity int) *Window {
	if capacity < 2 {
		capacity = 2
	}
	return &Window{samples: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest once the window is full.
func (w *Window) Push(v float64) {
	if w.count == len(w.samples) {
		old := w.samples[w.head]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.count++
	}

	w.samples[w.head] = v
	w.sum += v
	w.sumSq += v * v
	w.head = (w.head + 1) % len(w.samples)
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.count
}

// Mean returns the arithmetic mean of the held samples, or 0 when empty.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// StdDev returns the sample standard deviation of the held samples.
// Fewer than two samples have no spread, so 0 is returned.
func (w *Window) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	mean := w.Mean()
	// Sample variance via the running sums; clamp tiny negative values
	// produced by float cancellation.
	variance := (w.sumSq - float64(w.count)*mean*mean) / float64(w.count-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Values returns the held samples from oldest to newest.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := w.head - w.count
	if start < 0 {
		start += len(w.samples)
	}
	for i := 0; i < w.count; i++ {
		out = append(out, w.samples[(start+i)%len(w.samples)])
	}
	return out
}

// Trend returns the least-squares slope of the held samples against their
// index (oldest = 0), in value units per observation. Fewer than two
// samples have no trend.
func (w *Window) Trend() float64 {
	n := w.count
	if n < 2 {
		return 0
	}

	values := w.Values()
	// x is 0..n-1, so the x statistics have closed forms.
	xMean := float64(n-1) / 2
	var num, den float64
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - w.Mean())
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
