package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-assistant/internal/domain"
)

func TestNewsIngestor_Ingest(t *testing.T) {
	ctx := context.Background()
	newsRepo := &fakeNewsRepo{}
	ingestor := NewNewsIngestor(newsRepo, domain.NewFingerprintPolicy(), discardLogger())

	input := IngestInput{
		Date:      "2024-05-01",
		Title:     " 选课通知 ",
		Body:      "第一轮选课将于5月3日上午10点开始。",
		SourceURL: "https://dean.example.edu/1",
		Source:    "教务处",
	}

	result, rec, err := ingestor.Ingest(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, domain.PutInserted, result)
	assert.Equal(t, "选课通知", rec.Title)
	assert.Len(t, rec.ID, 64)
	assert.False(t, rec.CollectedAt.IsZero())

	t.Run("re-ingesting is a no-op", func(t *testing.T) {
		result, again, err := ingestor.Ingest(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, domain.PutDuplicate, result)
		assert.Equal(t, rec.ID, again.ID)

		records, err := newsRepo.ListByDate(ctx, "2024-05-01")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("whitespace variants dedup too", func(t *testing.T) {
		variant := input
		variant.Body = "第一轮选课将于5月3日上午10点开始。 \n"
		result, _, err := ingestor.Ingest(ctx, variant)
		require.NoError(t, err)
		assert.Equal(t, domain.PutDuplicate, result)
	})
}

func TestNewsIngestor_Validation(t *testing.T) {
	ingestor := NewNewsIngestor(&fakeNewsRepo{}, domain.NewFingerprintPolicy(), discardLogger())

	t.Run("empty title", func(t *testing.T) {
		_, _, err := ingestor.Ingest(context.Background(), IngestInput{Date: "2024-05-01", Title: "  "})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
	})

	t.Run("malformed date", func(t *testing.T) {
		_, _, err := ingestor.Ingest(context.Background(), IngestInput{Date: "05/01/2024", Title: "通知"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "date", verr.Field)
	})
}
