package ingestor

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/GabrielNunesIT/flowbase/internal/objectstore"
)

// fakeStore implements objectstore.Store with call counting.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	keys     []string // listing order
	listErr  error
	getErr   error
	lists    int
	gets     []string
	listArgs [][2]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) put(key, body string) {
	f.keys = append(f.keys, key)
	f.objects[key] = []byte(body)
}

func (f *fakeStore) List(ctx context.Context, bucket, prefix string) ([]objectstore.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	f.listArgs = append(f.listArgs, [2]string{bucket, prefix})
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []objectstore.ObjectInfo
	for _, k := range f.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, objectstore.ObjectInfo{Key: k, Size: int64(len(f.objects[k]))})
		}
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, key)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.objects[key], nil
}

// fakeFS implements FileSystem over an in-memory map.
type fakeFS struct {
	files     map[string]string
	existsErr error
	openErr   error
	exists    int
	opens     int
}

func (f *fakeFS) Exists(path string) (bool, error) {
	f.exists++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeFS) Open(path string) (io.ReadCloser, error) {
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.files[path])), nil
}

// mockHTTPClient implements HTTPDoer for testing.
type mockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
	calls  int
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.DoFunc(req)
}

// trackingBody records whether the response body was read.
type trackingBody struct {
	io.Reader
	read   bool
	closed bool
}

func (b *trackingBody) Read(p []byte) (int, error) {
	b.read = true
	return b.Reader.Read(p)
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func jsonResponse(status int, body string) (*http.Response, *trackingBody) {
	tb := &trackingBody{Reader: strings.NewReader(body)}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       tb,
	}, tb
}
