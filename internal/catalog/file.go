package catalog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/shopcart/internal/domain/product"
)

// FileSource serves a catalog snapshot from disk. Paths ending in ".gz" are
// gzip compressed.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads the whole snapshot on every call.
func (s *FileSource) Fetch(ctx context.Context) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if isGzip(s.path) {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", s.path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return decodeProducts(jx.Decode(r, 4096))
}

// WriteFile stores products as a snapshot readable by FileSource.
func WriteFile(path string, products []product.Product) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	var w io.Writer = f
	if isGzip(path) {
		gz := pgzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "flush gzip")
			}
		}()
		w = gz
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeProducts(e, products)
	if _, err := w.Write(e.Bytes()); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func isGzip(path string) bool {
	return strings.HasSuffix(path, ".gz")
}
