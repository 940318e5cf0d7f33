package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-video-maker/internal"
)

// fakeBucket is a path style S3 endpoint serving a single bucket from
// memory.
type fakeBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+f.name), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		fmt.Fprintf(&sb, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><IsTruncated>false</IsTruncated>", f.name, prefix, len(keys))
		for _, k := range keys {
			fmt.Fprintf(&sb, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-05-01T10:00:00.000Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		sb.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, sb.String())
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		w.Write(body)
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (Client, *fakeBucket) {
	t.Helper()
	fb := &fakeBucket{name: "videos", objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	c, err := New(internal.S3Config{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		Bucket:    "videos",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	return c, fb
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(internal.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	c, fb := newTestClient(t)
	ctx := context.Background()

	var out []map[string]string
	found, err := c.ReadJSON(ctx, "videos.json", &out)
	require.NoError(t, err)
	assert.False(t, found)

	in := []map[string]string{{"id": "abc", "filename": "A.mp4"}}
	require.NoError(t, c.WriteJSON(ctx, "videos.json", in))
	assert.Equal(t, "application/json", fb.types["videos.json"])

	found, err = c.ReadJSON(ctx, "videos.json", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetBytesMissingKey(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.GetBytes(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestReadJSONRejectsGarbage(t *testing.T) {
	c, fb := newTestClient(t)
	fb.objects["videos.json"] = []byte("{not json")

	var out []string
	found, err := c.ReadJSON(context.Background(), "videos.json", &out)
	assert.True(t, found)
	assert.ErrorContains(t, err, "decode videos.json")
}

func TestPutFileAndList(t *testing.T) {
	c, fb := newTestClient(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4"), 0o644))
	require.NoError(t, c.PutFile(ctx, "videos/abc/a.mp4", path, "video/mp4"))
	require.NoError(t, c.PutBytes(ctx, "other/x", []byte("x"), "text/plain"))

	assert.Equal(t, []byte("mp4"), fb.objects["videos/abc/a.mp4"])

	objects, err := c.List(ctx, "videos/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "videos/abc/a.mp4", objects[0].Key)
	assert.Equal(t, int64(3), objects[0].Size)
	assert.Equal(t, 2026, objects[0].LastModified.Year())
}
