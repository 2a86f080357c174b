package s3store_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yriy-kuskov/cakereact-core/records/config"
	"github.com/yriy-kuskov/cakereact-core/records/upload/s3store"
)

const mockEndpoint = "https://mock.s3.local"

// fakeS3 serves the PutObject and DeleteObject subset of a path-style S3 API from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if decoded, ok := decodeChunked(body); ok {
			body = decoded
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}

		return response(http.StatusOK, http.Header{"ETag": {"\"etag\""}}), nil
	case http.MethodDelete:
		delete(f.objects, key)

		return response(http.StatusNoContent, http.Header{}), nil
	}

	return response(http.StatusNotImplemented, http.Header{}), nil
}

func (f *fakeS3) object(key string) (fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	obj, ok := f.objects[key]
	return obj, ok
}

func response(status int, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil)), Header: header}
}

// decodeChunked decodes a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}

	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || parts[2] != "0" {
		return nil, false
	}

	return []byte(parts[1]), true
}

func newStore(t *testing.T, publicBaseURL string) (*s3store.Store, *fakeS3) {
	t.Helper()

	fake := &fakeS3{objects: make(map[string]fakeObject)}

	store, err := s3store.New(context.Background(), s3store.Config{
		Region:          "us-east-1",
		Bucket:          "mock-bucket",
		Endpoint:        mockEndpoint,
		PublicBaseURL:   publicBaseURL,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
	})
	require.NoError(t, err)

	return store, fake
}

func Test_New_When_Bucket_Is_Empty(t *testing.T) {
	// act
	store, err := s3store.New(context.Background(), s3store.Config{Region: "eu-central-1"})

	// assert
	assert.ErrorIs(t, err, s3store.ErrEmptyBucket)
	assert.Nil(t, store)
}

func Test_FromConfig_Uses_Blob_Settings(t *testing.T) {
	// act
	store, err := s3store.FromConfig(context.Background(), config.Blob{
		Bucket: "media",
		Region: "eu-central-1",
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.eu-central-1.amazonaws.com/products/a.png", store.PublicURL("products/a.png"))
}

func Test_Upload_Stores_Object_And_Returns_Public_URL(t *testing.T) {
	// arrange
	store, fake := newStore(t, "")

	// act
	publicURL, err := store.Upload(context.Background(), "products/tea.png", strings.NewReader("png-bytes"), "image/png")

	// assert
	require.NoError(t, err)
	assert.Equal(t, mockEndpoint+"/mock-bucket/products/tea.png", publicURL)

	obj, ok := fake.object("products/tea.png")
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(obj.body))
	assert.Equal(t, "image/png", obj.contentType)
}

func Test_Upload_Buffers_Non_Seekable_Body(t *testing.T) {
	// arrange
	store, fake := newStore(t, "")
	body := io.MultiReader(strings.NewReader("part-1 "), strings.NewReader("part-2"))

	// act
	_, err := store.Upload(context.Background(), "docs/readme.txt", body, "text/plain")

	// assert
	require.NoError(t, err)

	obj, ok := fake.object("docs/readme.txt")
	require.True(t, ok)
	assert.Equal(t, "part-1 part-2", string(obj.body))
}

func Test_Delete_Removes_Object(t *testing.T) {
	// arrange
	store, fake := newStore(t, "")
	_, err := store.Upload(context.Background(), "products/tea.png", strings.NewReader("x"), "image/png")
	require.NoError(t, err)

	// act
	err = store.Delete(context.Background(), "products/tea.png")

	// assert
	require.NoError(t, err)
	_, ok := fake.object("products/tea.png")
	assert.False(t, ok)
}

func Test_KeyFromURL(t *testing.T) {
	store, _ := newStore(t, "https://cdn.example.com/media/")

	testCases := []struct {
		description string
		url         string
		expectedKey string
		expectedOK  bool
	}{
		{
			description: "public base url",
			url:         "https://cdn.example.com/media/products/tea.png",
			expectedKey: "products/tea.png",
			expectedOK:  true,
		},
		{
			description: "query and fragment are ignored",
			url:         "https://cdn.example.com/media/products/tea.png?v=2#top",
			expectedKey: "products/tea.png",
			expectedOK:  true,
		},
		{
			description: "path style endpoint url",
			url:         mockEndpoint + "/mock-bucket/products/tea.png",
			expectedKey: "products/tea.png",
			expectedOK:  true,
		},
		{
			description: "escaped segments",
			url:         "https://cdn.example.com/media/products/green%20tea.png",
			expectedKey: "products/green tea.png",
			expectedOK:  true,
		},
		{
			description: "foreign url",
			url:         "https://elsewhere.example.com/tea.png",
			expectedOK:  false,
		},
		{
			description: "base url without key",
			url:         "https://cdn.example.com/media/",
			expectedOK:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			key, ok := store.KeyFromURL(tc.url)

			// assert
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedKey, key)
		})
	}
}

func Test_PublicURL_Escapes_Segments(t *testing.T) {
	// arrange
	store, _ := newStore(t, "https://cdn.example.com/media")

	// act
	publicURL := store.PublicURL("products/green tea.png")

	// assert
	assert.Equal(t, "https://cdn.example.com/media/products/green%20tea.png", publicURL)
}
