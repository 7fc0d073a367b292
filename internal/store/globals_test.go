package store

import "testing"

func TestAxisSystemEquivalent(t *testing.T) {
	tests := []struct {
		name string
		a, b AxisSystem
		want bool
	}{
		{"same preset", AxisMayaYUp, AxisMayaYUp, true},
		{"y up vs z up", AxisMayaYUp, AxisMayaZUp, false},
		{"handedness", AxisMayaYUp, AxisDirectX, false},
		{"sign magnitude ignored", AxisMayaYUp, AxisSystem{Up: UpY, UpSign: 5, Front: ParityOdd, FrontSign: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equivalent(tt.b); got != tt.want {
				t.Errorf("Equivalent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePresets(t *testing.T) {
	if a, err := ParseAxisSystem("Max"); err != nil || !a.Equivalent(AxisMayaZUp) {
		t.Errorf("ParseAxisSystem(Max) = %v, %v", a, err)
	}
	if _, err := ParseAxisSystem("sideways"); err == nil {
		t.Error("expected error for unknown axis system")
	}
	if u, err := ParseSystemUnit("m"); err != nil || u.ScaleFactor != 100 {
		t.Errorf("ParseSystemUnit(m) = %v, %v", u, err)
	}
	m, err := ParseTimeMode("pal")
	if err != nil || m != TimeModePAL {
		t.Errorf("ParseTimeMode(pal) = %v, %v", m, err)
	}
	if m.String() != "pal" || m.FrameRate() != 25 {
		t.Errorf("PAL = %s @ %v", m, m.FrameRate())
	}
}

func TestFrameTicks(t *testing.T) {
	if got := FrameTicks(30); got != 1539538600 {
		t.Errorf("FrameTicks(30) = %d", got)
	}
	if FrameTicks(0) != FrameTicks(30) {
		t.Error("zero rate should fall back to the default mode")
	}
	if !(TimeSpan{Start: 0, Stop: 1}).Valid() || (TimeSpan{Start: 1, Stop: 1}).Valid() {
		t.Error("TimeSpan.Valid mismatch")
	}
}

func TestSystemUnitTolerance(t *testing.T) {
	if !UnitCentimeter.ApproxEqual(SystemUnit{ScaleFactor: 1 + 1e-8}, 1e-6) {
		t.Error("expected values within tolerance to match")
	}
	if UnitCentimeter.ApproxEqual(UnitMeter, 1e-6) {
		t.Error("cm and m should differ")
	}
}
