package loader

import (
	"context"
	"fmt"
	"io"
	"os"
)

// OpenFile opens a package file for Load.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	return f, nil
}

// OpenPartition opens the package stored at offset within a raw partition
// image. Reading stops at the end of the image; Load consumes only the bytes
// the header declares.
func OpenPartition(imagePath string, offset int64) (io.ReadCloser, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open partition image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat partition image: %w", err)
	}
	if offset < 0 || offset >= info.Size() {
		_ = f.Close()
		return nil, fmt.Errorf("offset %d outside partition image of %d bytes", offset, info.Size())
	}

	return &partitionReader{
		SectionReader: io.NewSectionReader(f, offset, info.Size()-offset),
		file:          f,
	}, nil
}

type partitionReader struct {
	*io.SectionReader
	file *os.File
}

func (p *partitionReader) Close() error {
	return p.file.Close()
}

// LoadFile opens path and loads the package it contains.
func (l *Loader) LoadFile(ctx context.Context, path string) (*App, error) {
	rc, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return l.Load(ctx, rc)
}

// LoadPartition loads the package at offset within a partition image.
func (l *Loader) LoadPartition(ctx context.Context, imagePath string, offset int64) (*App, error) {
	rc, err := OpenPartition(imagePath, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return l.Load(ctx, rc)
}
