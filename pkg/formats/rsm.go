// Package formats provides parsers for binary model formats imported as
// scenes. RSM is a hierarchical model format: named nodes with a parent
// name, a pivot matrix, local TRS, triangle meshes and keyframes.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/link270/fbx-analyzer/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrRSMHierarchy          = errors.New("invalid RSM hierarchy")
)

const (
	rsmMagic   = "GRSM"
	nameLength = 40

	maxNodes    = 10000
	maxElements = 100000
	maxKeys     = 10000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMTexCoord is a texture coordinate with a vertex color.
type RSMTexCoord struct {
	Color [4]uint8 // RGBA (v1.2+)
	U, V  float32
}

// RSMFace is a triangle.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position keyframe (v < 1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation keyframe as an XYZW quaternion.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale keyframe (v >= 1.5).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string // empty for the root
	TextureIDs []int32

	Matrix   [9]float32 // 3x3 pivot rotation, column-major
	Offset   [3]float32 // pivot offset
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// HasAnimation reports whether the node carries keyframes.
func (n *RSMNode) HasAnimation() bool {
	return len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0
}

// RSM is a parsed model.
type RSM struct {
	Version    RSMVersion
	AnimLength int32 // milliseconds
	Shading    int32
	Alpha      float32
	Textures   []string
	RootNode   string
	Nodes      []RSMNode
}

// reader wraps binary reads and keeps the first error, so parse code can
// read field after field and check once.
type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrTruncatedRSMData
		}
		r.err = err
	}
}

func (r *reader) name() string {
	buf := make([]byte, nameLength)
	r.read(buf)
	return encoding.FixedStringToUTF8(buf)
}

// count reads an int32 element count and rejects negative or huge values.
func (r *reader) count(limit int32, what string) int {
	var n int32
	r.read(&n)
	if r.err == nil && (n < 0 || n > limit) {
		r.err = fmt.Errorf("%w: %s count %d", ErrTruncatedRSMData, what, n)
	}
	if r.err != nil {
		return 0
	}
	return int(n)
}

// ParseRSM parses RSM data. Versions 1.1 through 1.5 are supported.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}
	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	r := &reader{r: bytes.NewReader(data[6:])}
	r.read(&rsm.AnimLength)
	r.read(&rsm.Shading)
	rsm.Alpha = 1
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		r.read(&alpha)
		rsm.Alpha = float32(alpha) / 255
	}
	var reserved [16]byte
	r.read(&reserved)

	textures := r.count(maxElements, "texture")
	rsm.Textures = make([]string, textures)
	for i := range rsm.Textures {
		rsm.Textures[i] = encoding.NormalizeAssetPath(r.name())
	}
	rsm.RootNode = r.name()

	var nodeCount int32
	r.read(&nodeCount)
	if r.err != nil {
		return nil, r.err
	}
	if nodeCount < 0 || nodeCount > maxNodes {
		return nil, ErrInvalidNodeCount
	}
	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		parseRSMNode(r, rsm.Version, &rsm.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, r.err)
		}
	}
	return rsm, nil
}

func parseRSMNode(r *reader, version RSMVersion, node *RSMNode) {
	node.Name = r.name()
	node.Parent = r.name()

	node.TextureIDs = make([]int32, r.count(maxElements, "node texture"))
	r.read(node.TextureIDs)

	r.read(&node.Matrix)
	r.read(&node.Offset)
	r.read(&node.Position)
	r.read(&node.RotAngle)
	r.read(&node.RotAxis)
	r.read(&node.Scale)

	node.Vertices = make([][3]float32, r.count(maxElements, "vertex"))
	r.read(node.Vertices)

	node.TexCoords = make([]RSMTexCoord, r.count(maxElements, "texcoord"))
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			r.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		r.read(&tc.U)
		r.read(&tc.V)
	}

	node.Faces = make([]RSMFace, r.count(maxElements, "face"))
	for i := range node.Faces {
		face := &node.Faces[i]
		r.read(&face.VertexIDs)
		r.read(&face.TexCoordIDs)
		r.read(&face.TextureID)
		r.read(&face.Padding)
		r.read(&face.TwoSide)
		if version.AtLeast(1, 2) {
			r.read(&face.SmoothGroup)
		}
	}

	if !version.AtLeast(1, 5) {
		node.PosKeys = make([]RSMPosKeyframe, r.count(maxKeys, "position key"))
		for i := range node.PosKeys {
			r.read(&node.PosKeys[i].Frame)
			r.read(&node.PosKeys[i].Position)
		}
	}
	node.RotKeys = make([]RSMRotKeyframe, r.count(maxKeys, "rotation key"))
	for i := range node.RotKeys {
		r.read(&node.RotKeys[i].Frame)
		r.read(&node.RotKeys[i].Quaternion)
	}
	if version.AtLeast(1, 5) {
		node.ScaleKeys = make([]RSMScaleKeyframe, r.count(maxKeys, "scale key"))
		for i := range node.ScaleKeys {
			r.read(&node.ScaleKeys[i].Frame)
			r.read(&node.ScaleKeys[i].Scale)
		}
	}
}

// Children returns the indices of nodes whose parent is name, in file order.
func (rsm *RSM) Children(name string) []int {
	var out []int
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == name && rsm.Nodes[i].Name != name {
			out = append(out, i)
		}
	}
	return out
}

// Root returns the index of the root node.
func (rsm *RSM) Root() (int, bool) {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == rsm.RootNode {
			return i, true
		}
	}
	return 0, false
}

// Validate checks that node names are unique and every parent exists.
func (rsm *RSM) Validate() error {
	names := make(map[string]bool, len(rsm.Nodes))
	for _, n := range rsm.Nodes {
		if names[n.Name] {
			return fmt.Errorf("%w: duplicate node %q", ErrRSMHierarchy, n.Name)
		}
		names[n.Name] = true
	}
	if _, ok := rsm.Root(); !ok {
		return fmt.Errorf("%w: root node %q not found", ErrRSMHierarchy, rsm.RootNode)
	}
	for _, n := range rsm.Nodes {
		if n.Name != rsm.RootNode && n.Parent != "" && !names[n.Parent] {
			return fmt.Errorf("%w: node %q has unknown parent %q", ErrRSMHierarchy, n.Name, n.Parent)
		}
	}
	return nil
}

// HasAnimation reports whether any node carries keyframes.
func (rsm *RSM) HasAnimation() bool {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].HasAnimation() {
			return true
		}
	}
	return false
}
