package inspect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/memstore"
	"github.com/link270/fbx-analyzer/internal/store/storetest"
	"github.com/link270/fbx-analyzer/pkg/scenegraph"
)

func TestSceneGraph(t *testing.T) {
	c := storetest.NewCharacter()
	tree, err := SceneGraph(c.Scene)
	require.NoError(t, err)

	root := tree.Root
	assert.Equal(t, memstore.RootName, root.Name)
	uid, ok := root.UIDValue()
	require.True(t, ok)
	assert.Equal(t, uint64(c.Scene.Root()), uid)
	assert.Equal(t, scenegraph.TypeNone, root.AttributeType)
	assert.Equal(t, scenegraph.ClassNone, root.AttributeClass)

	head := tree.FindPath("Hips/Spine/Head")
	require.NotNil(t, head)
	assert.Equal(t, []int{1, 0, 0}, head.OriginalPath)
	assert.Equal(t, "LimbNode", head.AttributeType)
	assert.Equal(t, "Skeleton", head.AttributeClass)
	require.NotNil(t, head.ParentUID)
	assert.Equal(t, uint64(c.Spine), *head.ParentUID)

	spine := tree.FindPath("Hips/Spine")
	assert.InDelta(t, 5, spine.Rotation.Z, 1e-12)

	prop := tree.FindPath("Prop")
	assert.Equal(t, map[string]string{"note": "keep me"}, prop.Properties)
	assert.Empty(t, spine.Properties, "transform properties are not user properties")
}

func TestSceneGraphUnnamedAndUnreadable(t *testing.T) {
	s := memstore.New()
	n := s.AddNode(s.Root(), "")
	tree, err := SceneGraph(s)
	require.NoError(t, err)
	assert.Equal(t, "Node_2", tree.Root.Children[0].Name)
	assert.Equal(t, uint64(n), *tree.Root.Children[0].UID)

	s.SetTransformUnreadable(n, true)
	_, err = SceneGraph(s)
	assert.Error(t, err)
}

func TestTopLevel(t *testing.T) {
	tree, err := SceneGraph(storetest.NewCharacter().Scene)
	require.NoError(t, err)
	got := TopLevel(tree)
	require.Len(t, got, 3)
	assert.Equal(t, Summary{Name: "Body", AttributeType: "Mesh", AttributeClass: "Mesh", ChildCount: 0, IsMesh: true}, got[0])
	assert.Equal(t, Summary{Name: "Hips", AttributeType: "Root", AttributeClass: "Skeleton", ChildCount: 1}, got[1])
	assert.Equal(t, "Null", got[2].AttributeType)

	assert.Nil(t, TopLevel(&scenegraph.Tree{}))
}

func TestExplicitSkeletons(t *testing.T) {
	c := storetest.NewCharacter()
	skeletons := Skeletons(c.Scene)
	require.Len(t, skeletons, 1)
	sk := skeletons[0]
	assert.Equal(t, "Hips", sk.Name)
	assert.Equal(t, 3, sk.Root.Count())

	var types []string
	sk.Root.Walk(func(j *Joint) { types = append(types, j.Type) })
	assert.Equal(t, []string{"Root", "LimbNode", "LimbNode"}, types)
	assert.Equal(t, "Spine", sk.Root.Children[0].Children[0].Parent)
	assert.InDelta(t, 100, sk.Root.Translation.Y, 1e-12)
}

// rig builds a skeleton-less scene: Grp/J1/J2 with J1 a cluster link and J2
// animated, plus an unrelated node.
func rig() (*memstore.Scene, map[string]store.ID) {
	s := memstore.New()
	ids := map[string]store.ID{}
	ids["Grp"] = s.AddNode(s.Root(), "Grp")
	ids["J1"] = s.AddNode(ids["Grp"], "J1")
	ids["J2"] = s.AddNode(ids["J1"], "J2")
	ids["Other"] = s.AddNode(s.Root(), "Other")
	ids["Body"] = s.AddNode(s.Root(), "Body")

	mesh := s.AttachMesh(ids["Body"], memstore.MeshSpec{ControlPoints: 4, Polygons: 1})
	skin := s.AddSkin(mesh, "Skin")
	s.AddCluster(skin, "C1", store.Cluster{Link: ids["J1"], HasLink: true})

	stack := s.AddAnimStack("Take", store.TimeSpan{Stop: store.TicksPerSecond})
	s.AddAnimLayer(stack, "Base")
	s.AddAnimCurve("J2_R", ids["J2"], store.PropRotation)
	return s, ids
}

func TestInferredSkeletons(t *testing.T) {
	s, _ := rig()
	skeletons := Skeletons(s)
	require.Len(t, skeletons, 1)
	sk := skeletons[0]
	assert.Equal(t, "Grp", sk.Name)

	var got []string
	sk.Root.Walk(func(j *Joint) { got = append(got, j.Name+":"+j.Type) })
	assert.Equal(t, []string{"Grp:Node", "J1:ClusterLink", "J2:AnimatedNode"}, got)
}

func TestInferredSkeletonsNeedLayersForAnimation(t *testing.T) {
	s := memstore.New()
	n := s.AddNode(s.Root(), "Spin")
	s.AddAnimCurve("Spin_R", n, store.PropRotation)
	assert.Empty(t, Skeletons(s))
}

func TestSceneMetadata(t *testing.T) {
	c := storetest.NewCharacter()
	md := SceneMetadata(c.Scene)

	var globals []string
	for _, g := range md.Globals {
		globals = append(globals, g.Name)
	}
	assert.Equal(t, []string{"Axis System", "System Unit", "Time Mode", "Custom Frame Rate", "Timeline Default Span"}, globals)
	assert.Equal(t, "1.000000", md.Globals[1].Value)

	for i := 1; i < len(md.Objects); i++ {
		a, b := md.Objects[i-1], md.Objects[i]
		assert.True(t, a.Name < b.Name || a.Name == b.Name && a.UID < b.UID, "objects out of order at %d", i)
	}

	counts := map[string]int{}
	for i, d := range md.Definitions {
		counts[d.Class] = d.Count
		if i > 0 {
			assert.LessOrEqual(t, strings.ToLower(md.Definitions[i-1].Class), strings.ToLower(d.Class))
		}
	}
	assert.Equal(t, 6, counts["Node"])
	assert.Equal(t, 3, counts["Skeleton"])
	assert.Equal(t, 1, counts["Mesh"])

	var spine ObjectInfo
	for _, o := range md.Objects {
		if o.UID == c.Spine {
			spine = o
		}
	}
	assert.Equal(t, "Spine", spine.Name)
	require.NotEmpty(t, spine.Properties)
	assert.Contains(t, spine.Properties[1].Flags, "Animated")

	var outgoing, incoming int
	for _, conn := range spine.Connections {
		switch conn.Direction {
		case Outgoing:
			outgoing++
		case Incoming:
			incoming++
		}
	}
	assert.Positive(t, outgoing)
	assert.Positive(t, incoming)
}

func TestMetadataAttributeType(t *testing.T) {
	c := storetest.NewCharacter()
	md := SceneMetadata(c.Scene)
	for _, o := range md.Objects {
		if o.Class == "Skeleton" && o.Name == "Hips" {
			assert.Equal(t, "Root", o.Type)
			return
		}
	}
	t.Fatal("Hips skeleton attribute not listed")
}
