package inspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/link270/fbx-analyzer/internal/store"
)

// Connection directions.
const (
	Outgoing = "Outgoing"
	Incoming = "Incoming"
)

// PropertyEntry is one generic property or settings line.
type PropertyEntry struct {
	Name  string   `yaml:"name" json:"name"`
	Type  string   `yaml:"type" json:"type"`
	Value string   `yaml:"value" json:"value"`
	Flags []string `yaml:"flags,omitempty,flow" json:"flags,omitempty"`
}

// ConnectionInfo describes a link from or to an object.
type ConnectionInfo struct {
	Direction   string   `yaml:"direction" json:"direction"`
	Property    string   `yaml:"property,omitempty" json:"property,omitempty"`
	TargetUID   store.ID `yaml:"target_uid" json:"target_uid"`
	TargetName  string   `yaml:"target_name" json:"target_name"`
	TargetClass string   `yaml:"target_class" json:"target_class"`
}

// ObjectInfo describes one scene object.
type ObjectInfo struct {
	UID         store.ID         `yaml:"uid" json:"uid"`
	Name        string           `yaml:"name" json:"name"`
	Class       string           `yaml:"class" json:"class"`
	Type        string           `yaml:"type" json:"type"`
	Properties  []PropertyEntry  `yaml:"properties,omitempty" json:"properties,omitempty"`
	Connections []ConnectionInfo `yaml:"connections,omitempty" json:"connections,omitempty"`
}

// Definition counts objects of one class.
type Definition struct {
	Class string `yaml:"class" json:"class"`
	Count int    `yaml:"count" json:"count"`
}

// Metadata is the scene-wide overview.
type Metadata struct {
	Globals     []PropertyEntry `yaml:"globals" json:"globals"`
	Objects     []ObjectInfo    `yaml:"objects" json:"objects"`
	Definitions []Definition    `yaml:"definitions" json:"definitions"`
}

var allKinds = []store.Kind{
	store.KindNode, store.KindNull, store.KindSkeleton, store.KindMesh,
	store.KindCamera, store.KindLight, store.KindMaterial, store.KindTexture,
	store.KindSkin, store.KindCluster, store.KindPose, store.KindAnimStack,
	store.KindAnimLayer, store.KindAnimCurve, store.KindConstraint,
}

// SceneMetadata collects global settings, every object with its properties
// and connections, and per-class definition counts. Objects are sorted by
// name then uid; definitions by class, case-insensitively.
func SceneMetadata(s store.Scene) Metadata {
	md := Metadata{Globals: globalsOverview(s.Globals())}

	counts := map[string]int{}
	for _, kind := range allKinds {
		for _, id := range s.Objects(kind) {
			info := objectInfo(s, id)
			md.Objects = append(md.Objects, info)
			counts[info.Class]++
		}
	}
	sort.SliceStable(md.Objects, func(i, j int) bool {
		a, b := md.Objects[i], md.Objects[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.UID < b.UID
	})

	for class, n := range counts {
		md.Definitions = append(md.Definitions, Definition{Class: class, Count: n})
	}
	sort.Slice(md.Definitions, func(i, j int) bool {
		a, b := strings.ToLower(md.Definitions[i].Class), strings.ToLower(md.Definitions[j].Class)
		if a != b {
			return a < b
		}
		return md.Definitions[i].Class < md.Definitions[j].Class
	})
	return md
}

func objectInfo(s store.Scene, id store.ID) ObjectInfo {
	obj, _ := s.Object(id)
	info := ObjectInfo{UID: id, Name: obj.Name, Class: obj.ClassName, Type: obj.ClassName}
	if obj.Kind.IsAttribute() {
		for _, node := range ownerNodes(s, id) {
			if attr, ok := s.Attribute(node); ok && attr.ID == id {
				info.Type = attr.TypeName
			}
		}
	}
	if props, err := s.Properties(id); err == nil {
		for _, p := range props {
			info.Properties = append(info.Properties, PropertyEntry{
				Name: p.Name, Type: p.TypeName, Value: p.Value, Flags: p.Flags.Names(),
			})
		}
	} else {
		info.Properties = []PropertyEntry{{Name: "<properties>", Value: "<unavailable>"}}
	}
	for _, c := range s.Connections(id) {
		dir, other := Outgoing, c.Dst
		if c.Dst == id {
			dir, other = Incoming, c.Src
		}
		target, _ := s.Object(other)
		info.Connections = append(info.Connections, ConnectionInfo{
			Direction:   dir,
			Property:    c.Property,
			TargetUID:   other,
			TargetName:  target.Name,
			TargetClass: target.ClassName,
		})
	}
	return info
}

// ownerNodes returns the destinations an attribute connects to.
func ownerNodes(s store.Scene, attr store.ID) []store.ID {
	var out []store.ID
	for _, c := range s.Connections(attr) {
		if c.Src == attr {
			out = append(out, c.Dst)
		}
	}
	return out
}

func globalsOverview(g store.Globals) []PropertyEntry {
	var out []PropertyEntry
	if axis, err := g.AxisSystem(); err == nil {
		out = append(out, PropertyEntry{Name: "Axis System", Type: "AxisSystem", Value: axis.String()})
	}
	if unit, err := g.SystemUnit(); err == nil {
		out = append(out, PropertyEntry{Name: "System Unit", Type: "SystemUnit", Value: fmt.Sprintf("%.6f", unit.ScaleFactor)})
	}
	if mode, err := g.TimeMode(); err == nil {
		out = append(out, PropertyEntry{Name: "Time Mode", Type: "Setting", Value: mode.String()})
	}
	if rate, err := g.CustomFrameRate(); err == nil {
		out = append(out, PropertyEntry{Name: "Custom Frame Rate", Type: "Setting", Value: fmt.Sprintf("%g", rate)})
	}
	if span, err := g.DefaultTimeSpan(); err == nil && (span.Start != 0 || span.Stop != 0) {
		out = append(out, PropertyEntry{Name: "Timeline Default Span", Type: "TimeSpan", Value: fmt.Sprintf("%d -> %d", span.Start, span.Stop)})
	}
	return out
}
