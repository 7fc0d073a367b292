// Package storetest provides scene fixtures shared by package tests.
package storetest

import (
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/memstore"
	"github.com/link270/fbx-analyzer/pkg/math"
)

// Character holds the ids of the Character fixture.
type Character struct {
	Scene    *memstore.Scene
	Body     store.ID
	BodyMesh store.ID
	Hips     store.ID
	Spine    store.ID
	Head     store.ID
	Prop     store.ID
	Cluster  store.ID
	Material store.ID
	Texture  store.ID
	BindPose store.ID
	Stack    store.ID
}

// MeshLayers returns a typical single-layer mesh definition.
func MeshLayers() []store.Layer {
	return []store.Layer{{
		Index: 0,
		Elements: []store.LayerElement{
			{Channel: store.ChannelNormals, Mapping: store.MappingByPolygonVertex, Reference: store.ReferenceDirect, DirectCount: 24, IndexCount: -1},
			{Channel: store.ChannelUV, Set: 0, Mapping: store.MappingByPolygonVertex, Reference: store.ReferenceIndexToDirect, DirectCount: 14, IndexCount: 24},
			{Channel: store.ChannelMaterials, Mapping: store.MappingAllSame, Reference: store.ReferenceIndexToDirect, DirectCount: 1, IndexCount: 1},
		},
	}}
}

// NewCharacter builds a small rigged character that validates clean:
//
//	RootNode
//	├── Body (mesh, skinned to Hips, one material)
//	├── Hips (Root)
//	│   └── Spine (LimbNode)
//	│       └── Head (LimbNode)
//	└── Prop (Null, user property "note")
func NewCharacter() *Character {
	s := memstore.New()
	c := &Character{Scene: s}

	c.Body = s.AddNode(s.Root(), "Body")
	c.Hips = s.AddNode(s.Root(), "Hips")
	c.Spine = s.AddNode(c.Hips, "Spine")
	c.Head = s.AddNode(c.Spine, "Head")
	c.Prop = s.AddNode(s.Root(), "Prop")

	_ = s.SetLocalTransform(c.Hips, store.Transform{Translation: math.V3(0, 100, 0), Scaling: math.One()})
	_ = s.SetLocalTransform(c.Spine, store.Transform{Translation: math.V3(0, 20, 0), Rotation: math.V3(0, 0, 5), Scaling: math.One()})
	_ = s.SetLocalTransform(c.Head, store.Transform{Translation: math.V3(0, 30, 0), Scaling: math.One()})
	_ = s.SetLocalTransform(c.Prop, store.Transform{Translation: math.V3(50, 0, 0), Scaling: math.V3(2, 2, 2)})

	s.AttachSkeleton(c.Hips, store.RoleRoot)
	s.AttachSkeleton(c.Spine, store.RoleLimbNode)
	s.AttachSkeleton(c.Head, store.RoleLimbNode)
	s.AttachAttribute(c.Prop, store.KindNull, "Null")
	s.SetProperty(c.Prop, store.Property{Name: "note", TypeName: "KString", Value: "keep me", Flags: store.FlagUserDefined})

	c.BodyMesh = s.AttachMesh(c.Body, memstore.MeshSpec{ControlPoints: 8, Polygons: 6, Layers: MeshLayers()})
	skin := s.AddSkin(c.BodyMesh, "BodySkin")
	hipsWorld, _ := s.WorldTransform(c.Hips)
	c.Cluster = s.AddCluster(skin, "HipsCluster", store.Cluster{
		Link:            c.Hips,
		HasLink:         true,
		IndexCount:      8,
		WeightCount:     8,
		Transform:       math.Identity(),
		TransformOK:     true,
		LinkTransform:   hipsWorld,
		LinkTransformOK: true,
	})

	c.Texture = s.AddTexture("BodyDiffuse", "textures/body.png")
	c.Material = s.AddMaterial("BodyMat", store.TextureChannel{Name: store.ChannelDiffuse, Textures: []store.ID{c.Texture}})
	s.AssignMaterial(c.Body, c.Material)

	var entries []store.PoseEntry
	for _, id := range []store.ID{c.Body, c.Hips, c.Spine, c.Head} {
		m, _ := s.WorldTransform(id)
		entries = append(entries, store.PoseEntry{Node: id, Matrix: m})
	}
	c.BindPose, _ = s.AddPose(store.Pose{Name: "BindPose", Bind: true, Entries: entries})

	c.Stack = s.AddAnimStack("Take 001", store.TimeSpan{Start: 0, Stop: store.TicksPerSecond})
	s.AddAnimLayer(c.Stack, "BaseLayer")
	s.AddAnimCurve("Spine_R", c.Spine, memstore.PropRotation)
	s.AddConstraint("HeadAim", []store.ID{c.Prop}, []store.ID{c.Head})
	return c
}
