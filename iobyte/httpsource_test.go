package iobyte

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPByteSource_FetchReadsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Range"))
		w.Write([]byte("fragment-bytes"))
	}))
	defer srv.Close()

	src := NewHTTPByteSource()
	r, err := src.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	defer r.Close()

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "fragment-bytes", string(body))
}

func TestHTTPByteSource_NonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPByteSource()
	_, err := src.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestHTTPByteSource_ContextCancelAbortsFetch(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	src := NewHTTPByteSource()
	_, err := src.Fetch(ctx, srv.URL)
	require.Error(t, err)
}
