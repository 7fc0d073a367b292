package validation

import (
	"github.com/link270/fbx-analyzer/internal/store"
)

// Canonical is the global configuration a scene is validated against and
// repaired towards. Nil fields are not checked.
type Canonical struct {
	Axis      *store.AxisSystem `yaml:"axis,omitempty" json:"axis,omitempty"`
	Unit      *store.SystemUnit `yaml:"unit,omitempty" json:"unit,omitempty"`
	TimeMode  *store.TimeMode   `yaml:"time_mode,omitempty" json:"time_mode,omitempty"`
	FrameRate float64           `yaml:"frame_rate" json:"frame_rate"`
	// TimeSpan is captured from the first scene validated when unset.
	TimeSpan *store.TimeSpan `yaml:"time_span,omitempty" json:"time_span,omitempty"`
}

// DefaultCanonical is Y-up, centimeters, 30 frames per second.
func DefaultCanonical() *Canonical {
	axis := store.AxisMayaYUp
	unit := store.UnitCentimeter
	mode := store.TimeModeFrames30
	return &Canonical{Axis: &axis, Unit: &unit, TimeMode: &mode, FrameRate: mode.FrameRate()}
}

// Capture reads the canonical settings from a scene's globals. Settings the
// store cannot report keep their defaults.
func Capture(g store.Globals) *Canonical {
	c := DefaultCanonical()
	if axis, err := g.AxisSystem(); err == nil {
		c.Axis = &axis
	}
	if unit, err := g.SystemUnit(); err == nil {
		c.Unit = &unit
	}
	if mode, err := g.TimeMode(); err == nil {
		c.TimeMode = &mode
		c.FrameRate = mode.FrameRate()
		if mode == store.TimeModeCustom {
			if rate, err := g.CustomFrameRate(); err == nil {
				c.FrameRate = rate
			}
		}
	}
	c.captureSpan(g)
	return c
}

func (c *Canonical) captureSpan(g store.Globals) {
	if c.TimeSpan != nil {
		return
	}
	if span, err := g.DefaultTimeSpan(); err == nil && span.Valid() {
		c.TimeSpan = &span
	}
}

// Custom reports whether the canonical time mode is custom.
func (c *Canonical) Custom() bool {
	return c.TimeMode != nil && *c.TimeMode == store.TimeModeCustom
}

// OneFrame returns the fallback span of a single frame at the canonical rate.
func (c *Canonical) OneFrame() store.TimeSpan {
	rate := c.FrameRate
	if c.TimeMode != nil && !c.Custom() {
		rate = c.TimeMode.FrameRate()
	}
	return store.TimeSpan{Start: 0, Stop: store.FrameTicks(rate)}
}

// Clone returns a deep copy.
func (c *Canonical) Clone() *Canonical {
	out := *c
	if c.Axis != nil {
		v := *c.Axis
		out.Axis = &v
	}
	if c.Unit != nil {
		v := *c.Unit
		out.Unit = &v
	}
	if c.TimeMode != nil {
		v := *c.TimeMode
		out.TimeMode = &v
	}
	if c.TimeSpan != nil {
		v := *c.TimeSpan
		out.TimeSpan = &v
	}
	return &out
}

// Merge copies the settings o has set onto c. A time mode carries its
// frame rate with it.
func (c *Canonical) Merge(o *Canonical) {
	o = o.Clone()
	if o.Axis != nil {
		c.Axis = o.Axis
	}
	if o.Unit != nil {
		c.Unit = o.Unit
	}
	if o.TimeMode != nil {
		c.TimeMode = o.TimeMode
		c.FrameRate = o.FrameRate
	}
	if o.TimeSpan != nil {
		c.TimeSpan = o.TimeSpan
	}
}
