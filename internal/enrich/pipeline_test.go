package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthands/geoenrich/internal/config"
	"github.com/agenthands/geoenrich/internal/llm/llmtest"
	"github.com/agenthands/geoenrich/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(client *llmtest.MockLLMClient) *Pipeline {
	return NewPipeline(newTestLocator(client), zap.NewNop())
}

func collection(raws ...string) record.Collection {
	col := make(record.Collection, len(raws))
	for i, r := range raws {
		col[i] = record.Record(r)
	}
	return col
}

func TestEnrich(t *testing.T) {
	mock := &llmtest.MockLLMClient{ResponseQueue: []string{"DEU", "None", "BRA"}}
	col := collection(
		`{"name": "Solar Power Research in Germany"}`,
		`{"name": "A general theory of things"}`,
		`{"name": "  "}`,
		`{"title": "wrong field"}`,
		`{"name": "Amazon rainforest carbon flux"}`,
	)

	stats, err := newTestPipeline(mock).Enrich(context.Background(), col, "name")
	require.NoError(t, err)

	assert.Equal(t, Stats{Total: 5, Resolved: 2, NoLocation: 1, Skipped: 2}, stats)
	require.Len(t, col, 5)
	assert.JSONEq(t, `{"name": "Solar Power Research in Germany", "location": "DEU"}`, string(col[0]))
	assert.JSONEq(t, `{"name": "A general theory of things", "location": "Unknown Location"}`, string(col[1]))
	assert.Equal(t, `{"name": "  "}`, string(col[2]), "blank titles are left untouched")
	assert.Equal(t, `{"title": "wrong field"}`, string(col[3]))
	assert.JSONEq(t, `{"name": "Amazon rainforest carbon flux", "location": "BRA"}`, string(col[4]))

	require.Len(t, mock.Prompts, 3, "skipped records make no inference call")
	assert.Contains(t, mock.Prompts[0], "Solar Power Research in Germany")
	assert.Contains(t, mock.Prompts[2], "Amazon rainforest carbon flux")
}

func TestEnrich_TrimsTitleBeforePrompting(t *testing.T) {
	mock := &llmtest.MockLLMClient{Response: "NOR"}
	col := collection(`{"title": "  Fjord sediments \n"}`)

	_, err := newTestPipeline(mock).Enrich(context.Background(), col, "title")
	require.NoError(t, err)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], `"Fjord sediments"`)
}

func TestEnrich_FailureContinues(t *testing.T) {
	mock := &llmtest.MockLLMClient{Err: errors.New("dial tcp: connection refused")}
	col := collection(`{"name": "A"}`, `{"name": "B"}`)

	stats, err := newTestPipeline(mock).Enrich(context.Background(), col, "name")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Failed)
	assert.Len(t, mock.Prompts, 2, "a failed call does not stop the loop")
	for _, rec := range col {
		assert.Equal(t, UnknownLocation, rec.Field(record.LocationField))
	}
}

func TestEnrich_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &llmtest.MockLLMClient{Response: "DEU"}
	col := collection(`{"name": "A"}`)

	stats, err := newTestPipeline(mock).Enrich(ctx, col, "name")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Resolved)
	assert.Empty(t, mock.Prompts)
	assert.False(t, col[0].Has(record.LocationField))
}

func TestEnrich_Alpha2(t *testing.T) {
	mock := &llmtest.MockLLMClient{Response: "DE"}
	p := NewPipeline(NewLocator(mock, config.PromptConfig{ISOFormat: config.ISOAlpha2}, zap.NewNop()), zap.NewNop())
	col := collection(`{"name": "Solar Power Research in Germany"}`)

	_, err := p.Enrich(context.Background(), col, "name")
	require.NoError(t, err)

	assert.Equal(t, "DE", col[0].Field(record.LocationField))
}
