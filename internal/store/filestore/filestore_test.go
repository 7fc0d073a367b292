package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/document"
	"github.com/link270/fbx-analyzer/internal/store/storetest"
	"github.com/link270/fbx-analyzer/pkg/formats"
)

func TestOpenUnavailable(t *testing.T) {
	_, err := New(Unavailable("no runtime")).Open()
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestLoadExportDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "character.scene")
	data, err := document.Marshal(storetest.NewCharacter().Scene)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	engine := New()
	err = store.WithSession(ctx, engine, src, func(sess store.Session) error {
		_, ok := store.FindByPath(sess.Scene(), "Hips/Spine/Head")
		assert.True(t, ok)
		return sess.Export(ctx, filepath.Join(dir, "out.yaml"))
	})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "out.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(out), document.Magic)
}

func TestLoadRSM(t *testing.T) {
	model := &formats.RSM{
		Version:  formats.RSMVersion{Major: 1, Minor: 5},
		RootNode: "box",
		Nodes:    []formats.RSMNode{{Name: "box", Scale: [3]float32{1, 1, 1}}},
	}
	data, err := model.MarshalBinary()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "BOX.RSM")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	sess, err := New().Open()
	require.NoError(t, err)
	defer sess.Close()
	require.NoError(t, sess.Load(context.Background(), path))
	_, ok := store.FindByPath(sess.Scene(), "box")
	assert.True(t, ok)
}

func TestFileTypesAndClose(t *testing.T) {
	ctx := context.Background()
	sess, err := New().Open()
	require.NoError(t, err)

	assert.ErrorIs(t, sess.Load(ctx, "model.fbx"), ErrFileType)
	assert.ErrorIs(t, sess.Export(ctx, filepath.Join(t.TempDir(), "x.obj")), ErrFileType)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.ErrorIs(t, sess.Load(ctx, "a.scene"), ErrClosed)
}
