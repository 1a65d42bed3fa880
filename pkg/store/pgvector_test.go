package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safdari/biharrag/internal/models"
)

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "clean text", sanitizeUTF8("clean text"))
	assert.Equal(t, "العلم نور", sanitizeUTF8("العلم نور"))

	broken := "valid" + string([]byte{0xff, 0xfe}) + "tail"
	out := sanitizeUTF8(broken)
	assert.True(t, strings.HasPrefix(out, "valid"))
	assert.True(t, strings.HasSuffix(out, "tail"))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("4"))
	assert.Equal(t, "4", *nullable("4"))
}

func TestIsZero(t *testing.T) {
	assert.True(t, isZero(nil))
	assert.True(t, isZero(make([]float32, 768)))

	v := make([]float32, 768)
	v[3] = 0.1
	assert.False(t, isZero(v))
}

func TestExcludedReferenceRow(t *testing.T) {
	assert.True(t, excludedReferenceRow("short"))
	assert.True(t, excludedReferenceRow("Table of Contents for the chapters of this volume"))
	assert.True(t, excludedReferenceRow("Page 17 of 230"))
	assert.False(t, excludedReferenceRow("The Imam said that patience is the key to relief and certainty."))
}

// Integration coverage below needs a real PostgreSQL with pgvector.
func testStore(t *testing.T) *Store {
	t.Helper()
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := NewWithConfig(context.Background(), StoreConfig{
		ConnString: connString,
		TableName:  "bihar_chunks_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.pool.Exec(context.Background(), "DROP TABLE IF EXISTS bihar_chunks_test")
		s.pool.Exec(context.Background(), "DELETE FROM processed_volumes WHERE volume_number = 105")
		s.Close()
	})
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	embedding := make([]float32, 768)
	embedding[0] = 1

	long := strings.Repeat("The Imam said that seeking knowledge is obligatory. ", 4)
	passages := []models.Passage{
		{
			VolumeNumber: 105,
			ChapterRef:   "2",
			HadithRef:    "9",
			EnglishText:  long,
			FullText:     long,
			ChunkIndex:   0,
			Metadata:     map[string]interface{}{"volume": 105},
			Embedding:    embedding,
		},
	}

	n, err := s.InsertPassages(ctx, passages)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := s.SearchSimilar(ctx, embedding, 5, 105)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "9", found[0].HadithRef)
	assert.Greater(t, found[0].Similarity, float32(0.9))

	none, err := s.SearchSimilar(ctx, make([]float32, 768), 5, 105)
	require.NoError(t, err)
	assert.Empty(t, none)

	byRef, err := s.SearchByReference(ctx, 105, "", "9")
	require.NoError(t, err)
	require.NotEmpty(t, byRef)
	assert.Equal(t, "2", byRef[0].ChapterRef)

	require.NoError(t, s.RecordVolume(ctx, 105, "vol_105.pdf", 1))
	require.NoError(t, s.RecordVolume(ctx, 105, "vol_105.pdf", 2))

	records, err := s.ProcessedVolumes(ctx)
	require.NoError(t, err)
	var rec *models.VolumeRecord
	for i := range records {
		if records[i].VolumeNumber == 105 {
			rec = &records[i]
		}
	}
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.TotalChunks)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalChunks, 1)
}
