package scenegraph

import (
	"encoding/binary"
	"hash"
	gomath "math"
	"sort"

	"github.com/minio/highwayhash"

	"github.com/link270/fbx-analyzer/pkg/math"
)

var fingerprintKey = []byte("scenegraph-fingerprint-key-00000")

// Fingerprint hashes everything reconciliation would write to a store:
// structure, names, attribute labels, transforms, uids and properties.
// An empty tree hashes to zero.
func (t *Tree) Fingerprint() uint64 {
	if t.Root == nil {
		return 0
	}
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		panic(err) // key length is fixed
	}
	writeNode(h, t.Root)
	return h.Sum64()
}

// Modified reports whether the tree differs from a baseline fingerprint.
func (t *Tree) Modified(baseline uint64) bool {
	return t.Fingerprint() != baseline
}

func writeNode(h hash.Hash64, n *Node) {
	writeString(h, n.Name)
	writeString(h, n.AttributeType)
	writeString(h, n.AttributeClass)
	for _, v := range []math.Vec3{n.Translation, n.Rotation, n.Scaling} {
		writeUint(h, gomath.Float64bits(v.X))
		writeUint(h, gomath.Float64bits(v.Y))
		writeUint(h, gomath.Float64bits(v.Z))
	}
	if uid, ok := n.UIDValue(); ok {
		writeUint(h, 1)
		writeUint(h, uid)
	} else {
		writeUint(h, 0)
	}

	keys := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeUint(h, uint64(len(keys)))
	for _, k := range keys {
		writeString(h, k)
		writeString(h, n.Properties[k])
	}

	writeUint(h, uint64(len(n.Children)))
	for _, c := range n.Children {
		writeNode(h, c)
	}
}

func writeUint(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeString(h hash.Hash64, s string) {
	writeUint(h, uint64(len(s)))
	_, _ = h.Write([]byte(s))
}
