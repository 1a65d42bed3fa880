package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safdari/biharrag/internal/models"
	"github.com/safdari/biharrag/pkg/pipeline"
	"github.com/safdari/biharrag/pkg/ranker"
	"github.com/safdari/biharrag/server"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedDocument(ctx context.Context, text string) []float32 {
	return make([]float32, 768)
}
func (stubEmbedder) EmbedQuery(ctx context.Context, text string) []float32 {
	return make([]float32, 768)
}
func (stubEmbedder) Dimension() int { return 768 }

type stubSegmenter struct{}

func (stubSegmenter) Process(volume int, pages []string) ([]models.Passage, error) {
	return nil, nil
}

type stubGenerator struct{}

func (stubGenerator) Answer(ctx context.Context, query, contextBlock string) (string, error) {
	return "", nil
}

type stubStore struct {
	volumes []models.VolumeRecord
	stats   models.Stats
	byRef   []models.Passage
}

func (s *stubStore) InsertPassages(ctx context.Context, passages []models.Passage) (int, error) {
	return len(passages), nil
}
func (s *stubStore) SearchSimilar(ctx context.Context, embedding []float32, limit int, volumeFilter int) ([]models.QueryCandidate, error) {
	return nil, nil
}
func (s *stubStore) SearchByReference(ctx context.Context, volume int, chapter, hadith string) ([]models.Passage, error) {
	return s.byRef, nil
}
func (s *stubStore) RecordVolume(ctx context.Context, volume int, fileName string, totalChunks int) error {
	return nil
}
func (s *stubStore) ProcessedVolumes(ctx context.Context) ([]models.VolumeRecord, error) {
	return s.volumes, nil
}
func (s *stubStore) Stats(ctx context.Context) (models.Stats, error) { return s.stats, nil }
func (s *stubStore) Close()                                          {}

func newTestServer(st *stubStore) *httptest.Server {
	pipe := pipeline.New(pipeline.Config{}, stubEmbedder{}, st, stubSegmenter{}, stubGenerator{}, ranker.New(ranker.DefaultPolicy()))
	srv := server.New(server.Config{}, pipe, st)
	return httptest.NewServer(srv.Handler())
}

func TestHandleRoot(t *testing.T) {
	ts := newTestServer(&stubStore{stats: models.Stats{TotalVolumes: 3, TotalChunks: 420}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["volumes"])
	assert.Equal(t, float64(420), body["chunks"])
}

func TestHandleQuery_BadRequests(t *testing.T) {
	ts := newTestServer(&stubStore{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/query")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"query": "  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleQuery_FallbackAnswer(t *testing.T) {
	// The stub embedder yields a zero vector, so the pipeline answers without
	// touching search or generation.
	ts := newTestServer(&stubStore{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"query": "who compiled this collection"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result pipeline.QueryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.Answer)
	assert.Empty(t, result.Sources)
}

func TestHandleVolumes(t *testing.T) {
	ts := newTestServer(&stubStore{volumes: []models.VolumeRecord{
		{VolumeNumber: 1, FileName: "vol_1.pdf", TotalChunks: 100},
		{VolumeNumber: 52, FileName: "vol_52.pdf", TotalChunks: 250},
	}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/volumes")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		ProcessedCount int   `json:"processed_count"`
		MissingVolumes []int `json:"missing_volumes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.ProcessedCount)
	assert.Len(t, body.MissingVolumes, 108)
	assert.NotContains(t, body.MissingVolumes, 1)
	assert.NotContains(t, body.MissingVolumes, 52)
	assert.Contains(t, body.MissingVolumes, 110)
}

func TestHandleSearchByReference(t *testing.T) {
	ts := newTestServer(&stubStore{byRef: []models.Passage{
		{VolumeNumber: 52, HadithRef: "3", FullText: "The Imam said about the occultation and what follows it."},
	}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search-by-reference?volume=52&hadith=3")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count   int              `json:"count"`
		Results []models.Passage `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "3", body.Results[0].HadithRef)
}

func TestHandleSearchByReference_InvalidVolume(t *testing.T) {
	ts := newTestServer(&stubStore{})
	defer ts.Close()

	for _, q := range []string{"volume=0", "volume=999", "volume=abc", ""} {
		resp, err := http.Get(ts.URL + "/search-by-reference?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHandleStatistics(t *testing.T) {
	ts := newTestServer(&stubStore{stats: models.Stats{TotalChunks: 9000, ChunksWithArabic: 4000}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/statistics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats models.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 9000, stats.TotalChunks)
	assert.Equal(t, 4000, stats.ChunksWithArabic)
}
