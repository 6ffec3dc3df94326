package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-assistant/internal/domain"
)

func TestRetrievalEngine_ForDay(t *testing.T) {
	ctx := context.Background()
	newsRepo := &fakeNewsRepo{}
	engine := NewRetrievalEngine(newsRepo, 50, discardLogger())

	collected := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	records := []domain.NewsRecord{
		record("2024-05-01", "选课通知", "第一轮选课将于5月3日上午10点开始，请提前确认培养方案。", collected),
		record("2024-05-01", "空通知", "", collected),
		record("2024-05-01", "短通知", "见附件", collected),
	}
	for _, rec := range records {
		rec := rec
		_, err := newsRepo.Put(ctx, &rec)
		require.NoError(t, err)
	}

	set, err := engine.ForDay(ctx, "2024-05-01")
	require.NoError(t, err)

	assert.Equal(t, 3, set.RawCount)
	assert.Equal(t, 1, set.EffectiveCount(), "empty and trivially short bodies are filtered")
	assert.Equal(t, "选课通知", set.Records[0].Title)
}

func TestRetrievalEngine_CollapsesNearDuplicates(t *testing.T) {
	ctx := context.Background()
	newsRepo := &fakeNewsRepo{}
	engine := NewRetrievalEngine(newsRepo, 50, discardLogger())

	early := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(2 * time.Hour)

	// Same content modulo whitespace, different source urls, so both pass
	// the store's fingerprint dedup.
	first := domain.NewsRecord{
		ID: "a", Date: "2024-05-01", Title: "讲座通知",
		Body:      "人工智能前沿讲座将于周五下午在图书馆报告厅举行。",
		SourceURL: "https://dean.example.edu/a", CollectedAt: late,
	}
	second := domain.NewsRecord{
		ID: "b", Date: "2024-05-01", Title: "讲座通知",
		Body:      "人工智能前沿讲座将于周五下午在图书馆报告厅举行。\n",
		SourceURL: "https://mirror.example.edu/b", CollectedAt: early,
	}
	for _, rec := range []domain.NewsRecord{first, second} {
		rec := rec
		_, err := newsRepo.Put(ctx, &rec)
		require.NoError(t, err)
	}

	set, err := engine.ForDay(ctx, "2024-05-01")
	require.NoError(t, err)

	require.Equal(t, 1, set.EffectiveCount())
	assert.Equal(t, "b", set.Records[0].ID, "the earliest ingested copy wins")
	assert.Equal(t, 2, set.RawCount)
}

func TestRetrievalEngine_ForWindowBudget(t *testing.T) {
	ctx := context.Background()
	newsRepo := &fakeNewsRepo{}
	engine := NewRetrievalEngine(newsRepo, 3, discardLogger())

	collected := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for day := 1; day <= 5; day++ {
		date := fmt.Sprintf("2024-05-%02d", day)
		rec := record(date, "通知"+date, "关于"+date+"的教学安排调整的详细说明，请各位师生注意查收。", collected)
		_, err := newsRepo.Put(ctx, &rec)
		require.NoError(t, err)
	}

	set, err := engine.ForWindow(ctx, "2024-05-05", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, set.RawCount)
	require.Equal(t, 3, set.EffectiveCount(), "window is truncated to the record budget")
	assert.Equal(t, "2024-05-03", set.Records[0].Date, "truncation keeps the most recent records")
	assert.Equal(t, "2024-05-05", set.Records[2].Date)
}

func TestRetrievalEngine_ForWindowRejectsMalformedEnd(t *testing.T) {
	engine := NewRetrievalEngine(&fakeNewsRepo{}, 50, discardLogger())
	_, err := engine.ForWindow(context.Background(), "not-a-date", 7)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
