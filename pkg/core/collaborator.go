package core

import (
	"context"

	"github.com/go-git/go-billy/v5"
)

// Compressor writes a compressed copy of src to dst. Both paths are relative
// to fsys. A non-nil error means dst must not be used.
type Compressor interface {
	Compress(ctx context.Context, fsys billy.Filesystem, src, dst string) error
}

// Encryptor writes an encrypted copy of src to dst. When src equals dst the
// file is transformed in place.
type Encryptor interface {
	Encrypt(ctx context.Context, fsys billy.Filesystem, src, dst string) error
}

// CompressorFunc adapts a function to the Compressor interface.
type CompressorFunc func(ctx context.Context, fsys billy.Filesystem, src, dst string) error

func (f CompressorFunc) Compress(ctx context.Context, fsys billy.Filesystem, src, dst string) error {
	return f(ctx, fsys, src, dst)
}

// EncryptorFunc adapts a function to the Encryptor interface.
type EncryptorFunc func(ctx context.Context, fsys billy.Filesystem, src, dst string) error

func (f EncryptorFunc) Encrypt(ctx context.Context, fsys billy.Filesystem, src, dst string) error {
	return f(ctx, fsys, src, dst)
}
