package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/yriy-kuskov/cakereact-core/records"
)

const (
	sniffLen = 3072

	logMsgLoadPreviousFailed = "could not load previous row for file cleanup"
	logMsgDeleteFileFailed   = "file was not deleted from storage"
	logMsgUnknownFileURL     = "could not map file url to a storage key"
	logAttrError             = "error"
	logAttrURL               = "url"
	logAttrTable             = "table"
)

var (
	// ErrNilStore is returned by New when no Store is given.
	ErrNilStore = errors.New("upload store must not be nil")

	// ErrUploadFailed is returned, joined with the cause, when a file cannot be stored.
	ErrUploadFailed = errors.New("file upload failed")

	// ErrTransformFailed is returned, joined with the cause, when a Transformer fails.
	ErrTransformFailed = errors.New("file transform failed")
)

// Behavior uploads File values found in configured payload fields and replaces them by public URLs
// before the row is persisted. It deletes files that are replaced on update or orphaned by a delete.
//
// File deletion failures are logged at warn level and never fail the surrounding operation.
type Behavior struct {
	store  Store
	fields map[string]FieldConfig
	logger records.Logger

	mu      sync.Mutex
	deleted map[string]records.Record // rows loaded in beforeDelete, consumed in afterDelete
}

// Option defines a functional option for configuring Behavior.
type Option func(*Behavior)

// WithLogger sets the logger for the Behavior.
func WithLogger(logger records.Logger) Option {
	return func(b *Behavior) {
		b.logger = logger
	}
}

// New creates a Behavior for the given fields.
func New(store Store, fields map[string]FieldConfig, options ...Option) (*Behavior, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	b := &Behavior{
		store:   store,
		fields:  fields,
		deleted: make(map[string]records.Record),
	}

	for _, option := range options {
		option(b)
	}

	return b, nil
}

// Attach subscribes the Behavior to the lifecycle events of model. Events of other Models sharing the
// EventBus are ignored. The returned subscriptions can be passed to EventBus.Off.
func (b *Behavior) Attach(model *records.Model) []records.Subscription {
	bus := model.Events()

	processUploads := func(ctx context.Context, event *records.LifecycleEvent) (records.Outcome, error) {
		if event.Subject != model {
			return records.Continue(), nil
		}

		return records.Continue(), b.ProcessUploads(ctx, model, event.Payload)
	}

	rememberRow := func(ctx context.Context, event *records.LifecycleEvent) (records.Outcome, error) {
		if event.Subject != model {
			return records.Continue(), nil
		}

		row, err := model.FindByID(ctx, event.ID, records.QueryOptions{Contain: records.ContainNone()})
		if err != nil {
			b.warn(logMsgLoadPreviousFailed, err, logAttrTable, model.Table())
			return records.Continue(), nil
		}

		if row != nil {
			b.mu.Lock()
			b.deleted[deletedKey(model, event.ID)] = row.Serialize()
			b.mu.Unlock()
		}

		return records.Continue(), nil
	}

	deleteFiles := func(ctx context.Context, event *records.LifecycleEvent) (records.Outcome, error) {
		if event.Subject != model {
			return records.Continue(), nil
		}

		key := deletedKey(model, event.ID)

		b.mu.Lock()
		row, ok := b.deleted[key]
		delete(b.deleted, key)
		b.mu.Unlock()

		if ok {
			b.DeleteAllFiles(ctx, row)
		}

		return records.Continue(), nil
	}

	return []records.Subscription{
		bus.On(records.EventBeforeSave, processUploads),
		bus.On(records.EventBeforeUpdate, processUploads),
		bus.On(records.EventBeforeDelete, rememberRow),
		bus.On(records.EventAfterDelete, deleteFiles),
	}
}

// ProcessUploads replaces every File in the configured fields of payload by the URL of the uploaded file.
// When payload carries a primary key, the files of the stored row that get replaced are deleted.
func (b *Behavior) ProcessUploads(ctx context.Context, model *records.Model, payload records.Record) error {
	previous := b.previousRow(ctx, model, payload)

	for _, field := range b.fieldNames() {
		file, ok := asFile(payload[field])
		if !ok {
			continue
		}

		settings := b.fields[field]

		file, err := b.transform(ctx, file, settings.Transformers)
		if err != nil {
			return err
		}

		if previous != nil {
			if oldURL, ok := previous[field].(string); ok && oldURL != "" {
				b.deleteFile(ctx, oldURL)
			}
		}

		publicURL, err := b.upload(ctx, file, settings.Folder)
		if err != nil {
			return err
		}

		payload[field] = publicURL
	}

	return nil
}

// DeleteAllFiles deletes the files referenced by the configured fields of row.
func (b *Behavior) DeleteAllFiles(ctx context.Context, row records.Record) {
	for _, field := range b.fieldNames() {
		if fileURL, ok := row[field].(string); ok && fileURL != "" {
			b.deleteFile(ctx, fileURL)
		}
	}
}

func (b *Behavior) previousRow(ctx context.Context, model *records.Model, payload records.Record) records.Record {
	id, ok := payload[model.PrimaryKey()]
	if !ok || id == nil || id == "" || !b.hasFile(payload) {
		return nil
	}

	entity, err := model.FindByID(ctx, id, records.QueryOptions{Contain: records.ContainNone()})
	if err != nil {
		b.warn(logMsgLoadPreviousFailed, err, logAttrTable, model.Table())
		return nil
	}

	if entity == nil {
		return nil
	}

	return entity.Serialize()
}

func (b *Behavior) hasFile(payload records.Record) bool {
	for field := range b.fields {
		if _, ok := asFile(payload[field]); ok {
			return true
		}
	}

	return false
}

func (b *Behavior) transform(ctx context.Context, file *File, transformers []Transformer) (*File, error) {
	for i, transformer := range transformers {
		next, err := transformer(ctx, file)
		if err != nil {
			return nil, errors.Join(ErrTransformFailed, err)
		}

		if next == nil {
			return nil, fmt.Errorf("%w: transformer %d returned no file", ErrTransformFailed, i)
		}

		file = next
	}

	return file, nil
}

func (b *Behavior) upload(ctx context.Context, file *File, folder string) (string, error) {
	body := file.Body
	if body == nil {
		body = bytes.NewReader(nil)
	}

	contentType := file.ContentType
	if contentType == "" {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(body, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return "", errors.Join(ErrUploadFailed, err)
		}

		contentType = mimetype.Detect(head[:n]).String()
		body = io.MultiReader(bytes.NewReader(head[:n]), body)
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(file.Name))
	if folder != "" {
		key = path.Join(folder, key)
	}

	publicURL, err := b.store.Upload(ctx, key, body, contentType)
	if err != nil {
		return "", errors.Join(ErrUploadFailed, err)
	}

	return publicURL, nil
}

func (b *Behavior) deleteFile(ctx context.Context, fileURL string) {
	key, ok := b.store.KeyFromURL(fileURL)
	if !ok {
		b.warn(logMsgUnknownFileURL, nil, logAttrURL, fileURL)
		return
	}

	if err := b.store.Delete(ctx, key); err != nil {
		b.warn(logMsgDeleteFileFailed, err, logAttrURL, fileURL)
	}
}

func (b *Behavior) fieldNames() []string {
	names := make([]string, 0, len(b.fields))
	for field := range b.fields {
		names = append(names, field)
	}
	slices.Sort(names)

	return names
}

func (b *Behavior) warn(msg string, err error, args ...any) {
	if b.logger == nil {
		return
	}

	if err != nil {
		args = append([]any{logAttrError, err.Error()}, args...)
	}

	b.logger.Warn(msg, args...)
}

func deletedKey(model *records.Model, id any) string {
	return model.Table() + "/" + fmt.Sprint(id)
}
