// Package document implements the YAML scene document: a plain-text file
// format carrying everything the store adapter exposes. It is the format
// the reference engine loads and exports.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/memstore"
)

// Magic is the value of the format field of every scene document.
const Magic = "scene-document/1"

var (
	ErrFormat = errors.New("not a scene document")
	ErrRef    = errors.New("unknown object reference")
)

// Document is the serialized form of a scene.
type Document struct {
	Format      string       `yaml:"format"`
	Globals     Globals      `yaml:"globals"`
	Root        Node         `yaml:"root"`
	Textures    []Texture    `yaml:"textures,omitempty"`
	Materials   []Material   `yaml:"materials,omitempty"`
	Poses       []Pose       `yaml:"poses,omitempty"`
	AnimStacks  []AnimStack  `yaml:"anim_stacks,omitempty"`
	AnimCurves  []AnimCurve  `yaml:"anim_curves,omitempty"`
	Constraints []Constraint `yaml:"constraints,omitempty"`
}

// Globals are the scene-wide settings. Unsupported lists settings the
// scene does not expose.
type Globals struct {
	Axis            *store.AxisSystem `yaml:"axis,omitempty"`
	UnitScale       *float64          `yaml:"unit_scale,omitempty"`
	TimeMode        string            `yaml:"time_mode,omitempty"`
	CustomFrameRate *float64          `yaml:"custom_frame_rate,omitempty"`
	TimeSpan        *store.TimeSpan   `yaml:"time_span,omitempty"`
	Unsupported     []string          `yaml:"unsupported,omitempty,flow"`
}

// Node is one node and its subtree.
type Node struct {
	ID          uint64     `yaml:"id"`
	Name        string     `yaml:"name"`
	Translation [3]float64 `yaml:"translation,flow"`
	Rotation    [3]float64 `yaml:"rotation,flow"`
	Scaling     [3]float64 `yaml:"scaling,flow"`
	Attribute   *Attribute `yaml:"attribute,omitempty"`
	Materials   []uint64   `yaml:"materials,omitempty,flow"`
	Properties  []Property `yaml:"properties,omitempty"`
	Children    []Node     `yaml:"children,omitempty"`
}

// Attribute is a node attribute. Role applies to skeletons, Mesh to meshes.
type Attribute struct {
	Kind string `yaml:"kind"`
	Type string `yaml:"type,omitempty"`
	Role string `yaml:"role,omitempty"`
	Mesh *Mesh  `yaml:"mesh,omitempty"`
}

type Mesh struct {
	ControlPoints int     `yaml:"control_points"`
	Polygons      int     `yaml:"polygons"`
	Layers        []Layer `yaml:"layers,omitempty"`
	Skins         []Skin  `yaml:"skins,omitempty"`
}

type Layer struct {
	Index    int       `yaml:"index"`
	Elements []Element `yaml:"elements"`
}

// Element is a layer element. Index is -1 when there is no index array.
type Element struct {
	Channel   string `yaml:"channel"`
	Set       int    `yaml:"set,omitempty"`
	Mapping   string `yaml:"mapping"`
	Reference string `yaml:"reference"`
	Direct    int    `yaml:"direct"`
	Index     int    `yaml:"index"`
}

type Skin struct {
	Name     string    `yaml:"name"`
	Clusters []Cluster `yaml:"clusters,omitempty"`
}

type Cluster struct {
	Name          string       `yaml:"name"`
	Link          *uint64      `yaml:"link,omitempty"`
	Indices       int          `yaml:"indices"`
	Weights       int          `yaml:"weights"`
	Transform     *[16]float64 `yaml:"transform,omitempty,flow"`
	LinkTransform *[16]float64 `yaml:"link_transform,omitempty,flow"`
}

type Texture struct {
	ID   uint64 `yaml:"id"`
	Name string `yaml:"name"`
	File string `yaml:"file,omitempty"`
}

type Material struct {
	ID       uint64    `yaml:"id"`
	Name     string    `yaml:"name"`
	Channels []Channel `yaml:"channels,omitempty"`
}

type Channel struct {
	Name     string   `yaml:"name"`
	Textures []uint64 `yaml:"textures,flow"`
}

type Pose struct {
	Name    string      `yaml:"name"`
	Bind    bool        `yaml:"bind"`
	Entries []PoseEntry `yaml:"entries,omitempty"`
}

type PoseEntry struct {
	Node   uint64      `yaml:"node"`
	Matrix [16]float64 `yaml:"matrix,flow"`
}

type AnimStack struct {
	Name   string   `yaml:"name"`
	Start  int64    `yaml:"start"`
	Stop   int64    `yaml:"stop"`
	Layers []string `yaml:"layers,omitempty,flow"`
}

type AnimCurve struct {
	Name     string  `yaml:"name"`
	Node     *uint64 `yaml:"node,omitempty"`
	Property string  `yaml:"property,omitempty"`
}

type Constraint struct {
	Name    string   `yaml:"name"`
	Sources []uint64 `yaml:"sources,flow"`
	Targets []uint64 `yaml:"targets,flow"`
}

type Property struct {
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type,omitempty"`
	Value string   `yaml:"value"`
	Flags []string `yaml:"flags,omitempty,flow"`
}

// Marshal encodes a scene as YAML.
func Marshal(s store.Scene) ([]byte, error) {
	doc, err := Encode(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode scene document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses YAML into a new scene.
func Unmarshal(data []byte) (*memstore.Scene, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if doc.Format != Magic {
		return nil, fmt.Errorf("%w: format %q", ErrFormat, doc.Format)
	}
	return Decode(&doc)
}

// Load reads a document from any afs-supported location.
func Load(ctx context.Context, fs afs.Service, location string) (*memstore.Scene, error) {
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Save writes a scene document to any afs-supported location.
func Save(ctx context.Context, fs afs.Service, s store.Scene, location string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return fs.Upload(ctx, location, os.FileMode(0o644), bytes.NewReader(data))
}
