package minioctrl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/src/fsutil"
)

const notFoundXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

// fakeS3 serves a single object at /documents/my_document.txt.
func fakeS3(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["location"]; ok {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
			return
		}
		if r.URL.Path != "/documents/my_document.txt" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = w.Write([]byte(notFoundXML))
			}
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func TestMinioService(t *testing.T) {
	ctx := context.Background()
	const body = "Paris is the capital of France."
	srv := fakeS3(t, body)
	defer srv.Close()

	svc, err := NewMinioService(strings.TrimPrefix(srv.URL, "http://"), "minioadmin", "minioadmin", "documents", false)
	require.NoError(t, err)

	var _ fsutil.FileStore = svc

	info, err := svc.Stat(ctx, "my_document.txt")
	require.NoError(t, err)
	assert.Equal(t, fsutil.FileInfo{Name: "my_document.txt", Size: int64(len(body))}, info)

	data, err := svc.ReadFile(ctx, "my_document.txt")
	require.NoError(t, err)
	assert.Equal(t, body, string(data))

	_, err = svc.Stat(ctx, "missing.txt")
	assert.ErrorIs(t, err, fsutil.ErrNotFound)
}
