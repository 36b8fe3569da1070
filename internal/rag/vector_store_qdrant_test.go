package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/notebase/backend-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQdrant struct {
	collections map[string]int
	upserts     []map[string]interface{}
	searches    int
}

func newFakeQdrant() (*fakeQdrant, *httptest.Server) {
	f := &fakeQdrant{collections: make(map[string]int)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/collections/"):
			name := strings.TrimPrefix(r.URL.Path, "/collections/")
			if _, ok := f.collections[name]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/points"):
			var body struct {
				Points []map[string]interface{} `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.upserts = append(f.upserts, body.Points...)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/collections/"):
			var body struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			name := strings.TrimPrefix(r.URL.Path, "/collections/")
			f.collections[name] = body.Vectors.Size
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/points/search"):
			f.searches++
			name := strings.TrimPrefix(r.URL.Path, "/collections/")
			name = strings.TrimSuffix(name, "/points/search")
			if _, ok := f.collections[name]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result":[{"score":0.9,"payload":{"text":"hello"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return f, server
}

func newQdrantForTest(t *testing.T, server *httptest.Server, vectorSize int) VectorStore {
	t.Helper()
	store, err := NewQdrantVectorStore(QdrantOptions{
		Endpoint:   server.URL,
		VectorSize: vectorSize,
	})
	require.NoError(t, err)
	return store
}

func TestQdrantCreateCollectionStoresFullVectors(t *testing.T) {
	fake, server := newFakeQdrant()
	defer server.Close()
	store := newQdrantForTest(t, server, 3)

	rows := []Row{{ID: "r1", Text: "chunk", Vector: []float32{0.1, 0.2, 0.3}}}
	require.NoError(t, store.CreateCollection(context.Background(), "doc_1", rows))

	require.Len(t, fake.upserts, 1)
	vector, ok := fake.upserts[0]["vector"].([]interface{})
	require.True(t, ok)
	assert.Len(t, vector, 3)
	assert.Equal(t, 3, fake.collections["doc_1"])
}

func TestQdrantCreateCollectionRejectsDimensionMismatch(t *testing.T) {
	fake, server := newFakeQdrant()
	defer server.Close()
	store := newQdrantForTest(t, server, 3)

	// 维度超出集合配置时不允许静默截断
	rows := []Row{{ID: "r1", Text: "chunk", Vector: make([]float32, 6)}}
	err := store.CreateCollection(context.Background(), "doc_1", rows)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVectorStore))
	assert.Contains(t, err.Error(), "dimension mismatch")
	assert.Empty(t, fake.upserts)
}

func TestQdrantSearchRejectsDimensionMismatch(t *testing.T) {
	fake, server := newFakeQdrant()
	defer server.Close()
	store := newQdrantForTest(t, server, 3)
	fake.collections["doc_1"] = 3

	texts, err := store.Search(context.Background(), "doc_1", []float32{0.1, 0.2}, 5)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVectorStore))
	assert.Nil(t, texts)
	assert.Zero(t, fake.searches)
}

func TestQdrantSearchMissingCollection(t *testing.T) {
	_, server := newFakeQdrant()
	defer server.Close()
	store := newQdrantForTest(t, server, 3)

	texts, err := store.Search(context.Background(), "doc_missing", []float32{0.1, 0.2, 0.3}, 5)

	require.NoError(t, err)
	assert.Nil(t, texts)
}

func TestQdrantDuplicateCollection(t *testing.T) {
	fake, server := newFakeQdrant()
	defer server.Close()
	store := newQdrantForTest(t, server, 3)
	fake.collections["doc_1"] = 3

	err := store.CreateCollection(context.Background(), "doc_1", nil)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCollectionExists))
}
