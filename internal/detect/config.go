package detect

import (
	"fmt"

	"github.com/rs/zerolog"

	"stardetect/internal/measure"
	"stardetect/internal/predict"
)

// Config is the immutable, validated parameter set of one detector. Build a
// Config through Builder; zero values are filled with defaults there.
type Config struct {
	Threshold          float64
	SimplifyDistance   float64
	CellExpansion      float64
	CellConstrainScale float64
	IgnoreCellOverlaps bool
	ConstrainToParent  bool

	TileWidth  int
	TileHeight int
	Padding    int
	Workers    int
	Downsample float64
	Channels   int

	Classifications          map[int]string
	GlobalClass              string
	KeepClassifiedBackground bool

	IncludeProbability bool
	MeasureShape       bool
	IntensityStats     []measure.Stat
	Compartments       []measure.Compartment

	Normalize     bool
	NormalizeLow  float64
	NormalizeHigh float64
	PreprocessOps []predict.ImageOp
}

// classCount returns the number of classification channels the model is
// expected to produce.
func (c *Config) classCount() int {
	return len(c.Classifications)
}

// resolveClass maps a predicted class index to a label, falling back to the
// global class. An empty result means unclassified.
func (c *Config) resolveClass(classification int) string {
	if c.Classifications != nil {
		if label, ok := c.Classifications[classification]; ok && label != "" {
			return label
		}
	}
	return c.GlobalClass
}

// Builder accumulates detection parameters. All methods return the builder
// for chaining; nothing is validated until Build.
type Builder struct {
	cfg       Config
	modelPath string
	backend   predict.Backend
	cache     *predict.ModelCache
	logger    *zerolog.Logger
}

// NewBuilder starts a builder for a model file loaded with the OpenCV DNN
// backend.
func NewBuilder(modelPath string) *Builder {
	b := newBuilder()
	b.modelPath = modelPath
	return b
}

// NewBuilderWithBackend starts a builder using an injected inference backend.
func NewBuilderWithBackend(backend predict.Backend) *Builder {
	b := newBuilder()
	b.backend = backend
	return b
}

func newBuilder() *Builder {
	return &Builder{cfg: Config{
		Threshold:         0.5,
		SimplifyDistance:  1.4,
		ConstrainToParent: true,
		TileWidth:         1024,
		TileHeight:        1024,
		Padding:           32,
		Downsample:        1,
		Channels:          1,
		Compartments:      measure.AllCompartments(),
	}}
}

// Threshold sets the probability threshold for detection, in [0, 1).
func (b *Builder) Threshold(threshold float64) *Builder {
	b.cfg.Threshold = threshold
	return b
}

// Simplify sets the contour simplification distance; <= 0 disables
// simplification.
func (b *Builder) Simplify(distance float64) *Builder {
	b.cfg.SimplifyDistance = distance
	return b
}

// CellExpansion sets the distance by which nuclei are expanded to approximate
// cell boundaries; <= 0 disables expansion.
func (b *Builder) CellExpansion(distance float64) *Builder {
	b.cfg.CellExpansion = distance
	return b
}

// CellConstrainScale caps cell expansion at scale times the nucleus size.
// Only meaningful for values > 1.
func (b *Builder) CellConstrainScale(scale float64) *Builder {
	b.cfg.CellConstrainScale = scale
	return b
}

// IgnoreCellOverlaps skips the cell overlap constraint after expansion.
func (b *Builder) IgnoreCellOverlaps(ignore bool) *Builder {
	b.cfg.IgnoreCellOverlaps = ignore
	return b
}

// ConstrainToParent clips detections to the parent mask (default true).
func (b *Builder) ConstrainToParent(constrain bool) *Builder {
	b.cfg.ConstrainToParent = constrain
	return b
}

// TileSize sets the tile dimensions used for detection (default 1024x1024).
func (b *Builder) TileSize(width, height int) *Builder {
	b.cfg.TileWidth = width
	b.cfg.TileHeight = height
	return b
}

// Padding sets the per-side tile padding in pixels (default 32).
func (b *Builder) Padding(pad int) *Builder {
	b.cfg.Padding = pad
	return b
}

// Workers bounds tile and assembly parallelism; 0 means unbounded.
func (b *Builder) Workers(n int) *Builder {
	b.cfg.Workers = n
	return b
}

// Downsample sets the resolution at which detection runs (default 1, full
// resolution).
func (b *Builder) Downsample(downsample float64) *Builder {
	b.cfg.Downsample = downsample
	return b
}

// Channels sets how many input channels the model expects (1 or 3).
func (b *Builder) Channels(n int) *Builder {
	b.cfg.Channels = n
	return b
}

// Classifications maps predicted class indices to labels. Class 0 is treated
// as background and dropped unless KeepClassifiedBackground is set.
func (b *Builder) Classifications(m map[int]string) *Builder {
	b.cfg.Classifications = m
	return b
}

// Classify sets a label applied to objects that receive no mapped
// classification.
func (b *Builder) Classify(label string) *Builder {
	b.cfg.GlobalClass = label
	return b
}

// KeepClassifiedBackground keeps objects predicted as class 0.
func (b *Builder) KeepClassifiedBackground(keep bool) *Builder {
	b.cfg.KeepClassifiedBackground = keep
	return b
}

// IncludeProbability attaches the detection probability as a measurement.
func (b *Builder) IncludeProbability(include bool) *Builder {
	b.cfg.IncludeProbability = include
	return b
}

// MeasureShape requests shape measurements for each object.
func (b *Builder) MeasureShape() *Builder {
	b.cfg.MeasureShape = true
	return b
}

// MeasureIntensity requests the default intensity statistics.
func (b *Builder) MeasureIntensity() *Builder {
	b.cfg.IntensityStats = measure.DefaultStats()
	return b
}

// MeasureIntensityStats requests specific intensity statistics.
func (b *Builder) MeasureIntensityStats(stats ...measure.Stat) *Builder {
	b.cfg.IntensityStats = stats
	return b
}

// Compartments selects the compartments for intensity measurements.
func (b *Builder) Compartments(compartments ...measure.Compartment) *Builder {
	b.cfg.Compartments = compartments
	return b
}

// NormalizePercentiles enables per-tile percentile normalization of the input.
func (b *Builder) NormalizePercentiles(low, high float64) *Builder {
	b.cfg.Normalize = true
	b.cfg.NormalizeLow = low
	b.cfg.NormalizeHigh = high
	return b
}

// Preprocess appends image preprocessing ops applied before inference.
func (b *Builder) Preprocess(ops ...predict.ImageOp) *Builder {
	b.cfg.PreprocessOps = append(b.cfg.PreprocessOps, ops...)
	return b
}

// Cache loads the model through the given cache instead of loading it
// directly.
func (b *Builder) Cache(cache *predict.ModelCache) *Builder {
	b.cache = cache
	return b
}

// Logger sets the logger for the detector (default: disabled).
func (b *Builder) Logger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// Build validates the configuration and prepares the detector. Configuration
// and model-loading errors are fatal here, before any detection runs.
func (b *Builder) Build() (*Detector, error) {
	cfg := b.cfg

	if cfg.Threshold < 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("threshold %v out of range [0, 1)", cfg.Threshold)
	}
	if cfg.TileWidth <= 0 || cfg.TileHeight <= 0 {
		return nil, fmt.Errorf("invalid tile size %dx%d", cfg.TileWidth, cfg.TileHeight)
	}
	if cfg.Padding < 0 {
		return nil, fmt.Errorf("negative padding %d", cfg.Padding)
	}
	if 2*cfg.Padding >= cfg.TileWidth || 2*cfg.Padding >= cfg.TileHeight {
		return nil, fmt.Errorf("padding %d leaves no tile interior at %dx%d", cfg.Padding, cfg.TileWidth, cfg.TileHeight)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("negative worker count %d", cfg.Workers)
	}
	if cfg.Downsample <= 0 {
		return nil, fmt.Errorf("downsample %v must be positive", cfg.Downsample)
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d (want 1 or 3)", cfg.Channels)
	}
	if cfg.Normalize && !(cfg.NormalizeLow < cfg.NormalizeHigh && cfg.NormalizeLow >= 0 && cfg.NormalizeHigh <= 100) {
		return nil, fmt.Errorf("invalid normalization percentiles %v-%v", cfg.NormalizeLow, cfg.NormalizeHigh)
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	backend := b.backend
	ownsBackend := false
	if backend == nil {
		if b.modelPath == "" {
			return nil, fmt.Errorf("no model path and no inference backend configured")
		}
		var err error
		if b.cache != nil {
			backend, err = b.cache.GetOrLoad(b.modelPath, logger)
		} else {
			backend, err = predict.LoadDNN(b.modelPath, logger)
			ownsBackend = true
		}
		if err != nil {
			return nil, fmt.Errorf("loading model: %w", err)
		}
	}

	return &Detector{
		cfg:         cfg,
		backend:     backend,
		ownsBackend: ownsBackend,
		log:         logger,
	}, nil
}
