package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/minio/highwayhash"
	"github.com/viant/afs"
)

// ErrCopyMismatch means a copied file does not hash like its source.
var ErrCopyMismatch = errors.New("copied file differs from source")

var copyKey = []byte("scene-export-copy-verify-key-000")

// copyVerified copies src to dst and checks the copy byte for byte by
// comparing highwayhash digests of both files.
func copyVerified(ctx context.Context, fs afs.Service, src, dst string) error {
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if err = fs.Copy(ctx, src, dst); err != nil {
		return err
	}
	want, err := digest(ctx, fs, src)
	if err != nil {
		return err
	}
	got, err := digest(ctx, fs, dst)
	if err != nil {
		return err
	}
	if want != got {
		return fmt.Errorf("%w: %s", ErrCopyMismatch, dst)
	}
	return nil
}

func digest(ctx context.Context, fs afs.Service, location string) (uint64, error) {
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return 0, err
	}
	return highwayhash.Sum64(data, copyKey), nil
}
