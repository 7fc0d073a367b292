package memstore

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
)

// Feature names one global setting so it can be switched off to mimic
// older store versions.
type Feature int

const (
	FeatureAxis Feature = iota
	FeatureUnit
	FeatureTimeMode
	FeatureCustomFrameRate
	FeatureTimeSpan
)

var featureNames = [...]string{"axis system", "system unit", "time mode", "custom frame rate", "default time span"}

func (f Feature) String() string {
	if f >= 0 && int(f) < len(featureNames) {
		return featureNames[f]
	}
	return fmt.Sprintf("feature(%d)", int(f))
}

// Globals holds the scene-wide settings of a memstore scene.
type Globals struct {
	axis       store.AxisSystem
	unit       store.SystemUnit
	mode       store.TimeMode
	customRate float64
	span       store.TimeSpan

	noGet map[Feature]bool
	noSet map[Feature]bool
}

var _ store.Globals = (*Globals)(nil)

// NewGlobals returns Y-up, centimeter, 30 fps settings with a one second
// default timeline.
func NewGlobals() *Globals {
	return &Globals{
		axis:       store.AxisMayaYUp,
		unit:       store.UnitCentimeter,
		mode:       store.TimeModeFrames30,
		customRate: 30,
		span:       store.TimeSpan{Start: 0, Stop: store.TicksPerSecond},
		noGet:      make(map[Feature]bool),
		noSet:      make(map[Feature]bool),
	}
}

// Disable removes both accessors of a feature.
func (g *Globals) Disable(f Feature) {
	g.noGet[f] = true
	g.noSet[f] = true
}

// DisableSetter removes only the setter of a feature.
func (g *Globals) DisableSetter(f Feature) {
	g.noSet[f] = true
}

// Supports reports whether the getter of a feature is available.
func (g *Globals) Supports(f Feature) bool { return !g.noGet[f] }

func (g *Globals) get(f Feature) error {
	if g.noGet[f] {
		return fmt.Errorf("%w: get %s", store.ErrUnsupported, f)
	}
	return nil
}

func (g *Globals) set(f Feature) error {
	if g.noSet[f] {
		return fmt.Errorf("%w: set %s", store.ErrUnsupported, f)
	}
	return nil
}

func (g *Globals) AxisSystem() (store.AxisSystem, error) {
	return g.axis, g.get(FeatureAxis)
}

func (g *Globals) SetAxisSystem(a store.AxisSystem) error {
	if err := g.set(FeatureAxis); err != nil {
		return err
	}
	g.axis = a
	return nil
}

func (g *Globals) SystemUnit() (store.SystemUnit, error) {
	return g.unit, g.get(FeatureUnit)
}

func (g *Globals) SetSystemUnit(u store.SystemUnit) error {
	if err := g.set(FeatureUnit); err != nil {
		return err
	}
	g.unit = u
	return nil
}

func (g *Globals) TimeMode() (store.TimeMode, error) {
	return g.mode, g.get(FeatureTimeMode)
}

func (g *Globals) SetTimeMode(m store.TimeMode) error {
	if err := g.set(FeatureTimeMode); err != nil {
		return err
	}
	g.mode = m
	return nil
}

func (g *Globals) CustomFrameRate() (float64, error) {
	return g.customRate, g.get(FeatureCustomFrameRate)
}

func (g *Globals) SetCustomFrameRate(rate float64) error {
	if err := g.set(FeatureCustomFrameRate); err != nil {
		return err
	}
	g.customRate = rate
	return nil
}

func (g *Globals) DefaultTimeSpan() (store.TimeSpan, error) {
	return g.span, g.get(FeatureTimeSpan)
}

func (g *Globals) SetDefaultTimeSpan(span store.TimeSpan) error {
	if err := g.set(FeatureTimeSpan); err != nil {
		return err
	}
	g.span = span
	return nil
}
