package formats

import (
	"errors"
	"testing"
)

func makeRSM(major, minor uint8) *RSM {
	return &RSM{
		Version:    RSMVersion{Major: major, Minor: minor},
		AnimLength: 1000,
		Alpha:      1,
		Textures:   []string{`data\texture\wall.bmp`},
		RootNode:   "base",
		Nodes: []RSMNode{
			{
				Name:       "base",
				TextureIDs: []int32{0},
				Matrix:     [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
				Scale:      [3]float32{1, 1, 1},
				Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				TexCoords:  []RSMTexCoord{{Color: [4]uint8{255, 255, 255, 255}}, {U: 1, Color: [4]uint8{255, 255, 255, 255}}, {V: 1, Color: [4]uint8{255, 255, 255, 255}}},
				Faces:      []RSMFace{{VertexIDs: [3]uint16{0, 1, 2}, TexCoordIDs: [3]uint16{0, 1, 2}}},
				RotKeys:    []RSMRotKeyframe{{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}}},
			},
			{
				Name:     "lid",
				Parent:   "base",
				Matrix:   [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
				Position: [3]float32{0, 2, 0},
				Scale:    [3]float32{1, 1, 1},
			},
		},
	}
}

func TestParseRSM_MagicValidation(t *testing.T) {
	valid, err := makeRSM(1, 5).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	bad := append([]byte("XXXX"), valid[4:]...)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid magic", valid, nil},
		{"invalid magic", bad, ErrInvalidRSMMagic},
		{"empty data", []byte{}, ErrTruncatedRSMData},
		{"truncated header", []byte{'G', 'R', 'S'}, ErrTruncatedRSMData},
		{"truncated body", valid[:len(valid)-3], ErrTruncatedRSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRSM_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.1", 1, 1, false},
		{"v1.2", 1, 2, false},
		{"v1.4", 1, 4, false},
		{"v1.5", 1, 5, false},
		{"v0.1 unsupported", 0, 1, true},
		{"v2.2 unsupported", 2, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := makeRSM(1, 5).MarshalBinary()
			data[4], data[5] = tt.major, tt.minor
			if !tt.wantErr {
				data, _ = makeRSM(tt.major, tt.minor).MarshalBinary()
			}
			_, err := ParseRSM(data)
			if (err != nil) != tt.wantErr {
				t.Errorf("version %d.%d: got error=%v, wantErr=%v", tt.major, tt.minor, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedRSMVersion) {
				t.Errorf("got %v, want ErrUnsupportedRSMVersion", err)
			}
		})
	}
}

func TestRSMVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version RSMVersion
		major   uint8
		minor   uint8
		want    bool
	}{
		{RSMVersion{1, 5}, 1, 5, true},
		{RSMVersion{1, 5}, 1, 4, true},
		{RSMVersion{1, 5}, 1, 6, false},
		{RSMVersion{1, 5}, 2, 0, false},
		{RSMVersion{2, 3}, 1, 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
				t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
			}
		})
	}
}

func TestParseRSM_RoundTrip(t *testing.T) {
	for _, minor := range []uint8{1, 4, 5} {
		src := makeRSM(1, minor)
		data, err := src.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary: %v", err)
		}
		rsm, err := ParseRSM(data)
		if err != nil {
			t.Fatalf("v1.%d: ParseRSM: %v", minor, err)
		}
		if rsm.AnimLength != 1000 {
			t.Errorf("v1.%d: anim length = %d", minor, rsm.AnimLength)
		}
		if len(rsm.Nodes) != 2 || rsm.Nodes[1].Parent != "base" {
			t.Fatalf("v1.%d: nodes = %+v", minor, rsm.Nodes)
		}
		if got := rsm.Textures[0]; got != "data/texture/wall.bmp" {
			t.Errorf("v1.%d: texture = %q", minor, got)
		}
		if rsm.Nodes[1].Position != [3]float32{0, 2, 0} {
			t.Errorf("v1.%d: position = %v", minor, rsm.Nodes[1].Position)
		}
		if len(rsm.Nodes[0].Faces) != 1 || rsm.Nodes[0].Faces[0].VertexIDs != [3]uint16{0, 1, 2} {
			t.Errorf("v1.%d: faces = %+v", minor, rsm.Nodes[0].Faces)
		}
		if !rsm.HasAnimation() {
			t.Errorf("v1.%d: expected animation", minor)
		}
	}
}

func TestParseRSM_KoreanNames(t *testing.T) {
	src := makeRSM(1, 5)
	src.Nodes[1].Name = "상자"
	data, _ := src.MarshalBinary()
	rsm, err := ParseRSM(data)
	if err != nil {
		t.Fatalf("ParseRSM: %v", err)
	}
	if rsm.Nodes[1].Name != "상자" {
		t.Errorf("name = %q", rsm.Nodes[1].Name)
	}
}

func TestRSM_Hierarchy(t *testing.T) {
	rsm := makeRSM(1, 5)
	if err := rsm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	root, ok := rsm.Root()
	if !ok || root != 0 {
		t.Fatalf("Root = %d, %v", root, ok)
	}
	if got := rsm.Children("base"); len(got) != 1 || got[0] != 1 {
		t.Errorf("Children = %v", got)
	}

	tests := []struct {
		name   string
		mutate func(*RSM)
	}{
		{"missing root", func(r *RSM) { r.RootNode = "nope" }},
		{"duplicate name", func(r *RSM) { r.Nodes[1].Name = "base" }},
		{"unknown parent", func(r *RSM) { r.Nodes[1].Parent = "ghost" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := makeRSM(1, 5)
			tt.mutate(r)
			if err := r.Validate(); !errors.Is(err, ErrRSMHierarchy) {
				t.Errorf("got %v, want ErrRSMHierarchy", err)
			}
		})
	}
}
