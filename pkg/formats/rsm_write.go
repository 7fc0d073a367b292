package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/link270/fbx-analyzer/pkg/encoding"
)

// MarshalBinary encodes the model in its own version's layout.
func (rsm *RSM) MarshalBinary() ([]byte, error) {
	v := rsm.Version
	if v.Major != 1 || v.Minor < 1 || v.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, v)
	}
	var buf bytes.Buffer
	w := func(x any) { _ = binary.Write(&buf, binary.LittleEndian, x) }
	name := func(s string) { buf.Write(encoding.UTF8ToFixedString(s, nameLength)) }

	buf.WriteString(rsmMagic)
	buf.WriteByte(v.Major)
	buf.WriteByte(v.Minor)
	w(rsm.AnimLength)
	w(rsm.Shading)
	if v.AtLeast(1, 4) {
		w(uint8(rsm.Alpha * 255))
	}
	w([16]byte{})

	w(int32(len(rsm.Textures)))
	for _, t := range rsm.Textures {
		name(t)
	}
	name(rsm.RootNode)

	w(int32(len(rsm.Nodes)))
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		name(n.Name)
		name(n.Parent)
		w(int32(len(n.TextureIDs)))
		w(n.TextureIDs)
		w(n.Matrix)
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)

		w(int32(len(n.Vertices)))
		w(n.Vertices)
		w(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if v.AtLeast(1, 2) {
				w(tc.Color)
			}
			w(tc.U)
			w(tc.V)
		}
		w(int32(len(n.Faces)))
		for _, f := range n.Faces {
			w(f.VertexIDs)
			w(f.TexCoordIDs)
			w(f.TextureID)
			w(f.Padding)
			w(f.TwoSide)
			if v.AtLeast(1, 2) {
				w(f.SmoothGroup)
			}
		}
		if !v.AtLeast(1, 5) {
			w(int32(len(n.PosKeys)))
			w(n.PosKeys)
		}
		w(int32(len(n.RotKeys)))
		w(n.RotKeys)
		if v.AtLeast(1, 5) {
			w(int32(len(n.ScaleKeys)))
			w(n.ScaleKeys)
		}
	}
	return buf.Bytes(), nil
}
