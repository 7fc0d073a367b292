// Package rsmimport converts RSM models into in-memory scenes.
package rsmimport

import (
	"context"
	"fmt"
	gomath "math"
	"path"

	"github.com/viant/afs"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/memstore"
	"github.com/link270/fbx-analyzer/pkg/formats"
	"github.com/link270/fbx-analyzer/pkg/math"
)

// PropPivot holds the node pivot offset as "x,y,z".
const PropPivot = "RSM Pivot Offset"

// PropPivotRotation holds the pivot matrix as XYZ Euler degrees.
const PropPivotRotation = "RSM Pivot Rotation"

// StackName is the animation stack created for keyframed models.
const StackName = "Take 001"

// Load downloads and imports an RSM file.
func Load(ctx context.Context, fs afs.Service, location string) (*memstore.Scene, error) {
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	model, err := formats.ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	return Import(model)
}

type importer struct {
	model     *formats.RSM
	scene     *memstore.Scene
	materials []store.ID
	nodes     map[string]store.ID
}

// Import builds a scene from a parsed model. The model root becomes the
// single child of the scene root. Nodes whose parent chain never reaches
// the model root are attached to the scene root.
func Import(model *formats.RSM) (*memstore.Scene, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	im := &importer{
		model: model,
		scene: memstore.New(),
		nodes: make(map[string]store.ID, len(model.Nodes)),
	}

	if model.AnimLength > 0 {
		span := store.TimeSpan{Start: 0, Stop: msToTicks(model.AnimLength)}
		if err := im.scene.Settings().SetDefaultTimeSpan(span); err != nil {
			return nil, err
		}
	}

	for i, file := range model.Textures {
		tex := im.scene.AddTexture(path.Base(file), file)
		mat := im.scene.AddMaterial(fmt.Sprintf("Material_%d", i),
			store.TextureChannel{Name: store.ChannelDiffuse, Textures: []store.ID{tex}})
		im.materials = append(im.materials, mat)
	}

	root, _ := model.Root()
	im.build(im.scene.Root(), root)
	for i := range model.Nodes {
		if _, ok := im.nodes[model.Nodes[i].Name]; !ok {
			im.build(im.scene.Root(), i)
		}
	}

	if model.HasAnimation() {
		im.animation()
	}
	return im.scene, nil
}

func (im *importer) build(parent store.ID, index int) {
	n := &im.model.Nodes[index]
	id := im.scene.AddNode(parent, n.Name)
	im.nodes[n.Name] = id

	_ = im.scene.SetLocalTransform(id, localTransform(n))
	if deg, ok := pivotRotation(n.Matrix); ok {
		im.scene.SetProperty(id, store.Property{
			Name:     PropPivotRotation,
			TypeName: "Vector3D",
			Value:    fmt.Sprintf("%g,%g,%g", deg.X, deg.Y, deg.Z),
			Flags:    store.FlagUserDefined | store.FlagImported,
		})
	}
	if n.Offset != ([3]float32{}) {
		im.scene.SetProperty(id, store.Property{
			Name:     PropPivot,
			TypeName: "Vector3D",
			Value:    fmt.Sprintf("%g,%g,%g", n.Offset[0], n.Offset[1], n.Offset[2]),
			Flags:    store.FlagUserDefined | store.FlagImported,
		})
	}

	if len(n.Vertices) > 0 {
		im.scene.AttachMesh(id, meshSpec(im.model.Version, n))
		for _, tid := range n.TextureIDs {
			if tid >= 0 && int(tid) < len(im.materials) {
				im.scene.AssignMaterial(id, im.materials[tid])
			} else {
				im.scene.AssignMaterial(id, im.scene.DanglingID())
			}
		}
	} else {
		im.scene.AttachAttribute(id, store.KindNull, "Null")
	}

	for _, child := range im.model.Children(n.Name) {
		if _, seen := im.nodes[im.model.Nodes[child].Name]; !seen {
			im.build(id, child)
		}
	}
}

// pivotRotation reports the pivot matrix as Euler angles. Zero and
// identity matrices carry no rotation.
func pivotRotation(m [9]float32) (math.Vec3, bool) {
	var m3 [9]float64
	for i, v := range m {
		m3[i] = float64(v)
	}
	m4 := math.FromMat3x3(m3)
	if m3 == ([9]float64{}) || m4.ApproxEqual(math.Identity(), 1e-6) {
		return math.Vec3{}, false
	}
	deg := m4.EulerXYZ()
	for _, c := range []*float64{&deg.X, &deg.Y, &deg.Z} {
		*c = gomath.Round(*c*1e4) / 1e4
		if *c == 0 {
			*c = 0 // no "-0" in property text
		}
	}
	return deg, true
}

func localTransform(n *formats.RSMNode) store.Transform {
	axis := vec(n.RotAxis)
	rotation := math.Vec3{}
	if n.RotAngle != 0 && axis.Length() > 0 {
		rotation = math.QuatFromAxisAngle(axis, float64(n.RotAngle)).EulerXYZ()
	}
	scaling := vec(n.Scale)
	if scaling == (math.Vec3{}) {
		scaling = math.One()
	}
	return store.Transform{
		Translation: vec(n.Position),
		Rotation:    rotation,
		Scaling:     scaling,
	}
}

func meshSpec(version formats.RSMVersion, n *formats.RSMNode) memstore.MeshSpec {
	faces := len(n.Faces)
	elements := []store.LayerElement{{
		Channel:     store.ChannelUV,
		Mapping:     store.MappingByPolygonVertex,
		Reference:   store.ReferenceIndexToDirect,
		DirectCount: len(n.TexCoords),
		IndexCount:  3 * faces,
	}, {
		Channel:     store.ChannelMaterials,
		Mapping:     store.MappingByPolygon,
		Reference:   store.ReferenceIndexToDirect,
		DirectCount: len(n.TextureIDs),
		IndexCount:  faces,
	}}
	if version.AtLeast(1, 2) {
		elements = append(elements, store.LayerElement{
			Channel:     store.ChannelSmoothing,
			Mapping:     store.MappingByPolygon,
			Reference:   store.ReferenceDirect,
			DirectCount: faces,
			IndexCount:  -1,
		})
	}
	return memstore.MeshSpec{
		ControlPoints: len(n.Vertices),
		Polygons:      faces,
		Layers:        []store.Layer{{Index: 0, Elements: elements}},
	}
}

func (im *importer) animation() {
	stop := msToTicks(im.model.AnimLength)
	if stop <= 0 {
		stop = store.TicksPerSecond
	}
	stack := im.scene.AddAnimStack(StackName, store.TimeSpan{Start: 0, Stop: stop})
	im.scene.AddAnimLayer(stack, "BaseLayer")
	for i := range im.model.Nodes {
		n := &im.model.Nodes[i]
		id := im.nodes[n.Name]
		if len(n.PosKeys) > 0 {
			im.scene.AddAnimCurve(n.Name+"_T", id, memstore.PropTranslation)
		}
		if len(n.RotKeys) > 0 {
			im.scene.AddAnimCurve(n.Name+"_R", id, memstore.PropRotation)
		}
		if len(n.ScaleKeys) > 0 {
			im.scene.AddAnimCurve(n.Name+"_S", id, memstore.PropScaling)
		}
	}
}

func msToTicks(ms int32) int64 {
	return int64(ms) * store.TicksPerSecond / 1000
}

func vec(v [3]float32) math.Vec3 {
	return math.V3(float64(v[0]), float64(v[1]), float64(v[2]))
}
