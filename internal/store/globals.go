package store

import (
	"fmt"
	"math"
	"strings"
)

// TicksPerSecond is the time resolution of TimeSpan values.
const TicksPerSecond int64 = 46186158000

// Globals exposes scene-wide settings. Accessors return ErrUnsupported
// when the store version does not provide them.
type Globals interface {
	AxisSystem() (AxisSystem, error)
	SetAxisSystem(a AxisSystem) error
	SystemUnit() (SystemUnit, error)
	SetSystemUnit(u SystemUnit) error
	TimeMode() (TimeMode, error)
	SetTimeMode(m TimeMode) error
	CustomFrameRate() (float64, error)
	SetCustomFrameRate(rate float64) error
	DefaultTimeSpan() (TimeSpan, error)
	SetDefaultTimeSpan(span TimeSpan) error
}

// UpAxis is the up vector of an axis system.
type UpAxis int

const (
	UpX UpAxis = iota + 1
	UpY
	UpZ
)

// FrontParity picks the front vector among the two axes left over by Up.
type FrontParity int

const (
	ParityEven FrontParity = iota + 1
	ParityOdd
)

// Handedness of the coordinate system.
type Handedness int

const (
	RightHanded Handedness = iota
	LeftHanded
)

// AxisSystem describes scene orientation.
type AxisSystem struct {
	Up        UpAxis      `yaml:"up" json:"up"`
	UpSign    int         `yaml:"up_sign" json:"up_sign"`
	Front     FrontParity `yaml:"front" json:"front"`
	FrontSign int         `yaml:"front_sign" json:"front_sign"`
	Coord     Handedness  `yaml:"coord" json:"coord"`
}

// Well-known axis systems.
var (
	AxisMayaYUp = AxisSystem{Up: UpY, UpSign: 1, Front: ParityOdd, FrontSign: 1, Coord: RightHanded}
	AxisMayaZUp = AxisSystem{Up: UpZ, UpSign: 1, Front: ParityOdd, FrontSign: -1, Coord: RightHanded}
	AxisDirectX = AxisSystem{Up: UpY, UpSign: 1, Front: ParityOdd, FrontSign: 1, Coord: LeftHanded}
)

var axisPresets = map[string]AxisSystem{
	"maya-y-up": AxisMayaYUp,
	"opengl":    AxisMayaYUp,
	"maya-z-up": AxisMayaZUp,
	"max":       AxisMayaZUp,
	"directx":   AxisDirectX,
}

// ParseAxisSystem resolves a preset name such as "maya-y-up".
func ParseAxisSystem(name string) (AxisSystem, error) {
	if a, ok := axisPresets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return AxisSystem{}, fmt.Errorf("unknown axis system %q", name)
}

// Equivalent reports whether two axis systems describe the same orientation.
func (a AxisSystem) Equivalent(other AxisSystem) bool {
	return a.Up == other.Up && sign(a.UpSign) == sign(other.UpSign) &&
		a.Front == other.Front && sign(a.FrontSign) == sign(other.FrontSign) &&
		a.Coord == other.Coord
}

// String returns a compact description like "+Y/odd+/right".
func (a AxisSystem) String() string {
	up := map[UpAxis]string{UpX: "X", UpY: "Y", UpZ: "Z"}[a.Up]
	front := map[FrontParity]string{ParityEven: "even", ParityOdd: "odd"}[a.Front]
	coord := "right"
	if a.Coord == LeftHanded {
		coord = "left"
	}
	return fmt.Sprintf("%s%s/%s%s/%s", signChar(a.UpSign), up, front, signChar(a.FrontSign), coord)
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

func signChar(v int) string {
	if v < 0 {
		return "-"
	}
	return "+"
}

// SystemUnit is the scene unit expressed in centimeters per unit.
type SystemUnit struct {
	ScaleFactor float64 `yaml:"scale_factor" json:"scale_factor"`
}

// Well-known units.
var (
	UnitMillimeter = SystemUnit{ScaleFactor: 0.1}
	UnitCentimeter = SystemUnit{ScaleFactor: 1}
	UnitMeter      = SystemUnit{ScaleFactor: 100}
	UnitInch       = SystemUnit{ScaleFactor: 2.54}
)

var unitPresets = map[string]SystemUnit{
	"mm":   UnitMillimeter,
	"cm":   UnitCentimeter,
	"m":    UnitMeter,
	"inch": UnitInch,
}

// ParseSystemUnit resolves "mm", "cm", "m" or "inch".
func ParseSystemUnit(name string) (SystemUnit, error) {
	if u, ok := unitPresets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return u, nil
	}
	return SystemUnit{}, fmt.Errorf("unknown system unit %q", name)
}

// ApproxEqual compares scale factors with a relative tolerance.
func (u SystemUnit) ApproxEqual(other SystemUnit, relTol float64) bool {
	return isClose(u.ScaleFactor, other.ScaleFactor, relTol)
}

// TimeMode is the scene frame-rate mode.
type TimeMode int

const (
	TimeModeDefault TimeMode = iota
	TimeModeFrames24
	TimeModePAL
	TimeModeNTSC
	TimeModeFrames30
	TimeModeFrames48
	TimeModeFrames50
	TimeModeFrames60
	TimeModeFrames100
	TimeModeFrames120
	TimeModeCustom
)

var timeModes = []struct {
	name string
	rate float64
}{
	TimeModeDefault:   {"default", 30},
	TimeModeFrames24:  {"frames24", 24},
	TimeModePAL:       {"pal", 25},
	TimeModeNTSC:      {"ntsc", 29.97},
	TimeModeFrames30:  {"frames30", 30},
	TimeModeFrames48:  {"frames48", 48},
	TimeModeFrames50:  {"frames50", 50},
	TimeModeFrames60:  {"frames60", 60},
	TimeModeFrames100: {"frames100", 100},
	TimeModeFrames120: {"frames120", 120},
	TimeModeCustom:    {"custom", 0},
}

// String returns the mode name.
func (m TimeMode) String() string {
	if m >= 0 && int(m) < len(timeModes) {
		return timeModes[m].name
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// FrameRate returns the nominal rate of the mode; zero for custom.
func (m TimeMode) FrameRate() float64 {
	if m >= 0 && int(m) < len(timeModes) {
		return timeModes[m].rate
	}
	return 0
}

// ParseTimeMode resolves a name produced by TimeMode.String.
func ParseTimeMode(name string) (TimeMode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, m := range timeModes {
		if m.name == name {
			return TimeMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown time mode %q", name)
}

// TimeSpan is a [Start, Stop) interval in ticks.
type TimeSpan struct {
	Start int64 `yaml:"start" json:"start"`
	Stop  int64 `yaml:"stop" json:"stop"`
}

// Valid reports start < stop.
func (s TimeSpan) Valid() bool {
	return s.Start < s.Stop
}

// FrameTicks returns the duration of one frame at the given rate.
func FrameTicks(rate float64) int64 {
	if rate <= 0 {
		rate = TimeModeDefault.FrameRate()
	}
	return int64(math.Round(float64(TicksPerSecond) / rate))
}

func isClose(a, b, relTol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= relTol*math.Max(math.Abs(a), math.Abs(b))
}

// IsClose compares floats with a relative tolerance.
func IsClose(a, b, relTol float64) bool {
	return isClose(a, b, relTol)
}
