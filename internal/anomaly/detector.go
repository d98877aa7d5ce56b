package anomaly

import (
	"math"
	"sync"
)

// Result is the outcome of scoring one observation.
type Result struct {
	// Value is the observed sample.
	Value float64 `json:"value"`

	// ZScore is the distance of the sample from the window mean in
	// standard deviations, computed before the sample joined the window.
	ZScore float64 `json:"z_score"`

	// Mean and StdDev describe the window the sample was scored against.
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`

	// Samples is the window size at scoring time.
	Samples int `json:"samples"`

	// Flagged is true when |ZScore| exceeded the detector threshold and
	// the window held at least the configured minimum of samples.
	Flagged bool `json:"flagged"`
}

// Config tunes a Detector.
type Config struct {
	// WindowSize is the sample window capacity.
	WindowSize int

	// Threshold is the |z| above which an observation is flagged.
	Threshold float64

	// MinSamples is the minimum window fill before flagging starts.
	// A detector never flags against an unrepresentative window.
	MinSamples int
}

// DefaultConfig returns the detector tuning used when none is configured.
func DefaultConfig() Config {
	return Config{WindowSize: 60, Threshold: 3.0, MinSamples: 10}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowSize <= 2 {
		c.WindowSize = def.WindowSize
	}
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.MinSamples < 2 {
		c.MinSamples = def.MinSamples
	}
	return c
}

// Detector scores a single metric series against its own recent history.
type Detector struct {
	window *Window
	cfg    Config
}

// NewDetector creates a detector with the given tuning.
func NewDetector(cfg Config) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{
		window: NewWindow(cfg.WindowSize),
		cfg:    cfg,
	}
}

// Observe scores v against the current window, then adds it to the window.
// Scoring before insertion keeps a genuine outlier from diluting the
// statistics it is judged against.
func (d *Detector) Observe(v float64) Result {
	result := Result{
		Value:   v,
		Mean:    d.window.Mean(),
		StdDev:  d.window.StdDev(),
		Samples: d.window.Len(),
	}

	if result.StdDev > 0 {
		result.ZScore = (v - result.Mean) / result.StdDev
	}
	result.Flagged = result.Samples >= d.cfg.MinSamples &&
		math.Abs(result.ZScore) > d.cfg.Threshold

	d.window.Push(v)
	return result
}

// Trend returns the least-squares slope of the metric's recent samples.
func (d *Detector) Trend() float64 {
	return d.window.Trend()
}

// Stats is a point-in-time view of one detector, exported for dashboards.
type Stats struct {
	Metric  string  `json:"metric"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Trend   float64 `json:"trend"`
	Samples int     `json:"samples"`
}

// Registry holds one detector per metric name behind a single lock.
type Registry struct {
	mu        sync.Mutex
	detectors map[string]*Detector
	cfg       Config
}

// NewRegistry creates a registry; every detector it creates shares cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		detectors: make(map[string]*Detector),
		cfg:       cfg.withDefaults(),
	}
}

// Observe routes the sample to the named metric's detector, creating it on
// first use.
func (r *Registry) Observe(metric string, v float64) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.detectors[metric]
	if !ok {
		d = NewDetector(r.cfg)
		r.detectors[metric] = d
	}
	return d.Observe(v)
}

// Snapshot returns current stats for every tracked metric.
func (r *Registry) Snapshot() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Stats, 0, len(r.detectors))
	for metric, d := range r.detectors {
		out = append(out, Stats{
			Metric:  metric,
			Mean:    d.window.Mean(),
			StdDev:  d.window.StdDev(),
			Trend:   d.window.Trend(),
			Samples: d.window.Len(),
		})
	}
	return out
}
