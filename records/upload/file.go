package upload

import (
	"context"
	"io"
)

// File is an upload waiting in a payload field. The behavior replaces it by the public URL.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Transformer rewrites a File before upload, e.g. to resize an image.
type Transformer func(ctx context.Context, file *File) (*File, error)

// FieldConfig configures one file field.
type FieldConfig struct {
	Folder       string
	Transformers []Transformer
}

func asFile(v any) (*File, bool) {
	switch typed := v.(type) {
	case *File:
		return typed, typed != nil
	case File:
		return &typed, true
	default:
		return nil, false
	}
}
