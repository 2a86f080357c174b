package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yriy-kuskov/cakereact-core/records"
	"github.com/yriy-kuskov/cakereact-core/records/upload"
	"github.com/yriy-kuskov/cakereact-core/testutil/recordstest"
)

const baseURL = "https://cdn.example.com/"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	deleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memoryStore) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	s.types[key] = contentType

	return baseURL + key, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)

	return nil
}

func (s *memoryStore) KeyFromURL(publicURL string) (string, bool) {
	return strings.CutPrefix(publicURL, baseURL)
}

func (s *memoryStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}

	return keys
}

func setupProducts(t *testing.T, fields map[string]upload.FieldConfig, options ...upload.Option) (
	*records.Model,
	*recordstest.AdapterSpy,
	*memoryStore,
) {
	t.Helper()

	registry := records.NewRegistry()
	spy := recordstest.NewAdapterSpy()
	require.NoError(t, registry.AddConnection(records.DefaultConnection, spy))

	products, err := records.NewModel(registry, "products")
	require.NoError(t, err)

	store := newMemoryStore()
	behavior, err := upload.New(store, fields, options...)
	require.NoError(t, err)
	behavior.Attach(products)

	return products, spy, store
}

func Test_New_When_Store_Is_Nil(t *testing.T) {
	behavior, err := upload.New(nil, nil)

	assert.ErrorIs(t, err, upload.ErrNilStore)
	assert.Nil(t, behavior)
}

func Test_Save_Uploads_File_And_Stores_URL(t *testing.T) {
	// arrange
	products, spy, store := setupProducts(t, map[string]upload.FieldConfig{"image": {Folder: "products"}})

	// act
	entity, saved, err := products.SaveRecord(context.Background(), records.Record{
		"name":  "Tea",
		"image": &upload.File{Name: "Tea.PNG", Body: bytes.NewReader(pngHeader)},
	})

	// assert
	require.NoError(t, err)
	assert.True(t, saved)

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "products/"))
	assert.True(t, strings.HasSuffix(keys[0], ".png"))
	assert.Equal(t, pngHeader, store.objects[keys[0]])
	assert.Equal(t, "image/png", store.types[keys[0]])

	assert.Equal(t, baseURL+keys[0], spy.Calls("Create")[0].Data["image"])
	assert.Equal(t, baseURL+keys[0], entity.Get("image"))
}

func Test_Save_Keeps_Given_Content_Type(t *testing.T) {
	// arrange
	products, _, store := setupProducts(t, map[string]upload.FieldConfig{"manual": {}})

	// act
	_, _, err := products.SaveRecord(context.Background(), records.Record{
		"manual": upload.File{Name: "manual.txt", ContentType: "text/plain", Body: strings.NewReader("read me")},
	})

	// assert
	require.NoError(t, err)
	keys := store.keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "/")
	assert.Equal(t, "text/plain", store.types[keys[0]])
}

func Test_Save_Ignores_Fields_Without_File(t *testing.T) {
	// arrange
	products, spy, store := setupProducts(t, map[string]upload.FieldConfig{"image": {Folder: "products"}})

	// act
	_, _, err := products.SaveRecord(context.Background(), records.Record{"name": "Tea", "image": baseURL + "x.png"})

	// assert
	require.NoError(t, err)
	assert.Empty(t, store.keys())
	assert.Equal(t, baseURL+"x.png", spy.Calls("Create")[0].Data["image"])
}

func Test_Update_Replaces_Previous_File(t *testing.T) {
	// arrange
	products, spy, store := setupProducts(t, map[string]upload.FieldConfig{"image": {Folder: "products"}})
	store.objects["products/old.png"] = []byte("old")
	spy.Seed("products", records.Record{"id": 1, "name": "Tea", "image": baseURL + "products/old.png"})

	// act
	_, saved, err := products.SaveRecord(context.Background(), records.Record{
		"id":    1,
		"image": &upload.File{Name: "new.png", Body: bytes.NewReader(pngHeader)},
	})

	// assert
	require.NoError(t, err)
	assert.True(t, saved)

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.NotEqual(t, "products/old.png", keys[0])
	assert.Equal(t, baseURL+keys[0], spy.Rows("products")[0]["image"])
}

func Test_Save_Runs_Transformers(t *testing.T) {
	// arrange
	upper := func(_ context.Context, file *upload.File) (*upload.File, error) {
		raw, err := io.ReadAll(file.Body)
		if err != nil {
			return nil, err
		}

		return &upload.File{Name: "notes.md", ContentType: "text/markdown", Body: bytes.NewReader(bytes.ToUpper(raw))}, nil
	}
	products, _, store := setupProducts(t, map[string]upload.FieldConfig{
		"notes": {Folder: "docs", Transformers: []upload.Transformer{upper}},
	})

	// act
	_, _, err := products.SaveRecord(context.Background(), records.Record{
		"notes": &upload.File{Name: "notes.txt", Body: strings.NewReader("hello")},
	})

	// assert
	require.NoError(t, err)
	keys := store.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasSuffix(keys[0], ".md"))
	assert.Equal(t, "HELLO", string(store.objects[keys[0]]))
	assert.Equal(t, "text/markdown", store.types[keys[0]])
}

func Test_Save_When_Transformer_Fails(t *testing.T) {
	// arrange
	cause := errors.New("not an image")
	products, spy, store := setupProducts(t, map[string]upload.FieldConfig{
		"image": {Transformers: []upload.Transformer{func(context.Context, *upload.File) (*upload.File, error) {
			return nil, cause
		}}},
	})

	// act
	_, saved, err := products.SaveRecord(context.Background(), records.Record{
		"image": &upload.File{Name: "a.png", Body: bytes.NewReader(pngHeader)},
	})

	// assert
	assert.False(t, saved)
	assert.ErrorIs(t, err, records.ErrListenerFailed)
	assert.ErrorIs(t, err, upload.ErrTransformFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, spy.CallCount("Create"))
	assert.Empty(t, store.keys())
}

func Test_Delete_Removes_Files_After_Row_Is_Deleted(t *testing.T) {
	// arrange
	products, spy, store := setupProducts(t, map[string]upload.FieldConfig{
		"image":  {Folder: "products"},
		"manual": {Folder: "docs"},
	})
	store.objects["products/a.png"] = []byte("a")
	store.objects["docs/a.pdf"] = []byte("a")
	spy.Seed("products", records.Record{
		"id":     1,
		"image":  baseURL + "products/a.png",
		"manual": baseURL + "docs/a.pdf",
	})

	// act
	deleted, err := products.Delete(context.Background(), 1)

	// assert
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, store.keys())
}

func Test_Delete_When_Cancelled_Keeps_Files(t *testing.T) {
	// arrange
	products, spy, store := setupProducts(t, map[string]upload.FieldConfig{"image": {}})
	store.objects["a.png"] = []byte("a")
	spy.Seed("products", records.Record{"id": 1, "image": baseURL + "a.png"})
	products.Events().On(records.EventBeforeDelete, func(context.Context, *records.LifecycleEvent) (records.Outcome, error) {
		return records.Abort("locked"), nil
	})

	// act
	deleted, err := products.Delete(context.Background(), 1)

	// assert
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []string{"a.png"}, store.keys())
}

func Test_Delete_When_Storage_Fails_Logs_Warning(t *testing.T) {
	// arrange
	logSpy := recordstest.NewLogHandlerSpy(false)
	products, spy, store := setupProducts(t,
		map[string]upload.FieldConfig{"image": {}},
		upload.WithLogger(logSpy.Logger()),
	)
	store.objects["a.png"] = []byte("a")
	store.deleteErr = errors.New("access denied")
	spy.Seed("products", records.Record{"id": 1, "image": baseURL + "a.png"})

	// act
	deleted, err := products.Delete(context.Background(), 1)

	// assert
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelWarn, "file was not deleted from storage").
		WithAttribute("url", baseURL+"a.png").
		Assert())
}

func Test_Behavior_Ignores_Other_Models(t *testing.T) {
	// arrange
	registry := records.NewRegistry()
	spy := recordstest.NewAdapterSpy()
	require.NoError(t, registry.AddConnection(records.DefaultConnection, spy))
	products, err := records.NewModel(registry, "products")
	require.NoError(t, err)
	orders, err := records.NewModel(registry, "orders")
	require.NoError(t, err)

	store := newMemoryStore()
	behavior, err := upload.New(store, map[string]upload.FieldConfig{"image": {}})
	require.NoError(t, err)
	subscriptions := behavior.Attach(products)

	// act
	_, _, err = orders.SaveRecord(context.Background(), records.Record{
		"image": &upload.File{Name: "a.png", Body: bytes.NewReader(pngHeader)},
	})

	// assert
	require.NoError(t, err)
	assert.Empty(t, store.keys())
	assert.Len(t, subscriptions, 4)
	for _, sub := range subscriptions {
		assert.True(t, registry.Events().Off(sub))
	}
}

func Test_DeleteAllFiles_Skips_Unknown_URLs(t *testing.T) {
	// arrange
	logSpy := recordstest.NewLogHandlerSpy(false)
	store := newMemoryStore()
	store.objects["a.png"] = []byte("a")
	behavior, err := upload.New(store, map[string]upload.FieldConfig{"image": {}, "thumb": {}}, upload.WithLogger(logSpy.Logger()))
	require.NoError(t, err)

	// act
	behavior.DeleteAllFiles(context.Background(), records.Record{
		"image": baseURL + "a.png",
		"thumb": "https://elsewhere.example.com/b.png",
	})

	// assert
	assert.Empty(t, store.keys())
	assert.True(t, logSpy.HasLog(slog.LevelWarn, "could not map file url to a storage key"))
}

func Test_Plugin_Attaches_Behavior_Through_Registry(t *testing.T) {
	// setup
	registry := records.NewRegistry()
	spy := recordstest.NewAdapterSpy()
	require.NoError(t, registry.AddConnection(records.DefaultConnection, spy))
	products, err := records.NewModel(registry, "products")
	require.NoError(t, err)

	store := newMemoryStore()
	behavior, err := upload.New(store, map[string]upload.FieldConfig{"image": {}})
	require.NoError(t, err)

	// arrange
	require.NoError(t, registry.AddPlugin("uploads", upload.NewPlugin(behavior, products)))

	// act
	_, saved, err := products.SaveRecord(context.Background(), records.Record{
		"image": &upload.File{Name: "a.png", Body: bytes.NewReader(pngHeader)},
	})

	// assert
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Len(t, store.keys(), 1)

	found, ok := registry.Plugin("uploads")
	require.True(t, ok)
	plugin, ok := found.(*upload.Plugin)
	require.True(t, ok)
	assert.Same(t, behavior, plugin.Behavior())
	assert.Len(t, plugin.Subscriptions(), 4)
}

func Test_Plugin_When_Model_Belongs_To_Another_Registry(t *testing.T) {
	// setup
	registry := records.NewRegistry()
	other := records.NewRegistry()
	products, err := records.NewModel(other, "products")
	require.NoError(t, err)

	behavior, err := upload.New(newMemoryStore(), map[string]upload.FieldConfig{"image": {}})
	require.NoError(t, err)

	// act
	err = registry.AddPlugin("uploads", upload.NewPlugin(behavior, products))

	// assert
	assert.ErrorIs(t, err, records.ErrPluginInitFailed)
	assert.ErrorIs(t, err, upload.ErrForeignModel)
	assert.Zero(t, other.Events().ListenerCount(records.EventBeforeSave))
}
