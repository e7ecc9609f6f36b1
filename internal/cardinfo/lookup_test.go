package cardinfo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestLookupReturnsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lightning Bolt", r.URL.Query().Get("exact"))
		io.WriteString(w, `{"name":"Lightning Bolt","image_uris":{"normal":"https://img.example/bolt.jpg"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, quietLogger())
	info := c.Lookup(context.Background(), "Lightning Bolt")
	assert.Equal(t, "Lightning Bolt", info.Name)
	assert.Equal(t, "https://img.example/bolt.jpg", info.Image)
}

func TestLookupCachesRepeatedNames(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"name":"Island","image_uris":{"normal":"https://img.example/island.jpg"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, quietLogger())
	ctx := context.Background()
	c.Lookup(ctx, "Island")
	c.Lookup(ctx, "island")
	c.Lookup(ctx, "ISLAND")
	assert.Equal(t, int32(1), hits.Load())
}

func TestLookupDegradesToNoImage(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"details":"no such card"}`, http.StatusNotFound)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{{{`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := New(srv.URL, quietLogger())
			info := c.Lookup(context.Background(), "Nonexistent Card")
			assert.Equal(t, "Nonexistent Card", info.Name)
			assert.Empty(t, info.Image)
		})
	}
}

func TestLookupFailuresNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"name":"Forest","image_uris":{"normal":"https://img.example/forest.jpg"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, quietLogger())
	ctx := context.Background()
	assert.Empty(t, c.Lookup(ctx, "Forest").Image)
	assert.Equal(t, "https://img.example/forest.jpg", c.Lookup(ctx, "Forest").Image)
}

func TestDisabledClient(t *testing.T) {
	c := New("", quietLogger())
	info := c.Lookup(context.Background(), "Mountain")
	assert.Equal(t, "Mountain", info.Name)
	assert.Empty(t, info.Image)
}
