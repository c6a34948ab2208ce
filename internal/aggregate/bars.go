package aggregate

import "math"

// BarConfig controls status strip bar heights.
type BarConfig struct {
	// MaxHeight is the height of failing bars and of the slowest passing bar.
	MaxHeight float64
	// MinHeight is the sliver drawn for the fastest passing bar.
	MinHeight float64
	// Zoominess in [0,1] is the fraction of the fastest duration subtracted
	// before scaling. 0 maps the fastest bar to MinHeight; 1 scales from zero.
	Zoominess float64
}

// DefaultBarConfig returns the strip defaults.
func DefaultBarConfig() BarConfig {
	return BarConfig{MaxHeight: 20, MinHeight: 0.5, Zoominess: 0}
}

func (c BarConfig) normalized() BarConfig {
	def := DefaultBarConfig()
	if c.MaxHeight <= 0 {
		c.MaxHeight = def.MaxHeight
	}
	c.MinHeight = math.Max(0, math.Min(c.MinHeight, c.MaxHeight))
	c.Zoominess = math.Max(0, math.Min(c.Zoominess, 1))
	return c
}

// BarHeights returns one height per entry. Passing durations scale linearly
// between MinHeight and MaxHeight over the observed passing range; failing
// entries are always MaxHeight. When the range is empty every passing bar is
// MaxHeight.
func BarHeights(entries []StatusEntry, cfg BarConfig) []float64 {
	cfg = cfg.normalized()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range entries {
		if !e.Status.Status {
			continue
		}
		d := float64(e.Status.Duration)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	lower := lo - lo*cfg.Zoominess
	span := hi - lower

	heights := make([]float64, len(entries))
	for i, e := range entries {
		if !e.Status.Status || span <= 0 {
			heights[i] = cfg.MaxHeight
			continue
		}
		d := float64(e.Status.Duration)
		heights[i] = cfg.MinHeight + (d-lower)/span*(cfg.MaxHeight-cfg.MinHeight)
	}
	return heights
}
