package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the compression algorithm used for stored payloads.
type Compression uint8

const (
	// CompressionNone stores payloads verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 frame compression (fast, moderate ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD frame compression (better ratio).
	CompressionZSTD Compression = 2
)

// compressMagic marks a blob written by CompressingStore. The byte after the
// magic identifies the algorithm, so blobs are self-describing and a store
// can read back payloads written with a different configured algorithm.
var compressMagic = []byte{0xC4, 0x50}

const compressHeaderSize = 3

// CompressingStore wraps a Store and compresses payloads on write.
//
// Model snapshots compress well (float weights carry a lot of structure),
// and checkpoint retention keeps several of them around, so compression
// directly multiplies how many epochs fit in a storage budget.
type CompressingStore struct {
	inner Store
	alg   Compression
}

// NewCompressingStore creates a CompressingStore writing with alg.
func NewCompressingStore(inner Store, alg Compression) *CompressingStore {
	return &CompressingStore{inner: inner, alg: alg}
}

// Create creates a compressed writable blob.
func (s *CompressingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	header := []byte{compressMagic[0], compressMagic[1], byte(s.alg)}
	if _, err := w.Write(header); err != nil {
		_ = w.Close()
		return nil, err
	}

	switch s.alg {
	case CompressionNone:
		return w, nil
	case CompressionLZ4:
		return &compressWritableBlob{inner: w, enc: lz4.NewWriter(w)}, nil
	case CompressionZSTD:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		return &compressWritableBlob{inner: w, enc: enc}, nil
	default:
		_ = w.Close()
		return nil, fmt.Errorf("blobstore: unknown compression %d", s.alg)
	}
}

// Put writes a blob atomically, compressed.
func (s *CompressingStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Open opens a blob and transparently decompresses it. Blobs without the
// compression header are returned verbatim, so a store can be layered over
// pre-existing uncompressed data.
func (s *CompressingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	header := make([]byte, compressHeaderSize)
	n, err := io.ReadFull(b, header)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// Too short to carry a header: raw blob, replay what was read.
		return &rawBlob{r: io.MultiReader(bytes.NewReader(header[:n]), b), b: b}, nil
	}
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if header[0] != compressMagic[0] || header[1] != compressMagic[1] {
		return &rawBlob{r: io.MultiReader(bytes.NewReader(header), b), b: b}, nil
	}

	switch Compression(header[2]) {
	case CompressionNone:
		return &rawBlob{r: b, b: b}, nil
	case CompressionLZ4:
		return &decompressBlob{r: io.NopCloser(lz4.NewReader(b)), b: b}, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(b)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		return &decompressBlob{r: dec.IOReadCloser(), b: b}, nil
	default:
		_ = b.Close()
		return nil, fmt.Errorf("blobstore: unknown compression %d in blob %s", header[2], name)
	}
}

// Delete removes a blob.
func (s *CompressingStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List returns all blob names matching the prefix.
func (s *CompressingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type compressWritableBlob struct {
	inner WritableBlob
	enc   io.WriteCloser
}

func (w *compressWritableBlob) Write(p []byte) (int, error) {
	return w.enc.Write(p)
}

func (w *compressWritableBlob) Sync() error {
	return w.inner.Sync()
}

func (w *compressWritableBlob) Close() error {
	if err := w.enc.Close(); err != nil {
		_ = w.inner.Close()
		return err
	}
	return w.inner.Close()
}

// rawBlob serves a blob body verbatim (possibly with replayed header bytes).
type rawBlob struct {
	r io.Reader
	b Blob
}

func (d *rawBlob) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *rawBlob) Close() error               { return d.b.Close() }

// Size reports the stored size, not the decoded size.
func (d *rawBlob) Size() int64 { return d.b.Size() }

type decompressBlob struct {
	r io.ReadCloser
	b Blob
}

func (d *decompressBlob) Read(p []byte) (int, error) { return d.r.Read(p) }

func (d *decompressBlob) Close() error {
	_ = d.r.Close()
	return d.b.Close()
}

// Size reports the stored (compressed) size, not the decoded size.
func (d *decompressBlob) Size() int64 { return d.b.Size() }
