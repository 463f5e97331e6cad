package perception

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localcoder/internal/types"
)

type stubClient struct {
	resp string
	err  error
}

func (s stubClient) Chat(ctx context.Context, msgs []types.Message) (string, error) {
	return s.resp, s.err
}

func (s stubClient) Model() string { return "stub-model" }

type sliceSink struct{ traces []ChatTrace }

func (s *sliceSink) Record(t ChatTrace) { s.traces = append(s.traces, t) }

func TestTracingClient_RecordsSuccessAndFailure(t *testing.T) {
	sink := &sliceSink{}

	ok := NewTracingClient(stubClient{resp: "fine"}, sink, "sess-1")
	resp, err := ok.Chat(context.Background(), []types.Message{types.UserMessage("a"), types.UserMessage("b")})
	require.NoError(t, err)
	assert.Equal(t, "fine", resp)

	bad := NewTracingClient(stubClient{err: errors.New("boom")}, sink, "sess-1")
	_, err = bad.Chat(context.Background(), nil)
	assert.EqualError(t, err, "boom")

	require.Len(t, sink.traces, 2)
	assert.True(t, sink.traces[0].Success)
	assert.Equal(t, 2, sink.traces[0].Messages)
	assert.Equal(t, "stub-model", sink.traces[0].Model)
	assert.Equal(t, "sess-1", sink.traces[0].SessionID)
	assert.False(t, sink.traces[1].Success)
	assert.Equal(t, "boom", sink.traces[1].Error)
}

func TestChatStats(t *testing.T) {
	var stats ChatStats
	assert.Zero(t, stats.Snapshot().AvgDuration)

	stats.Record(ChatTrace{Success: true, Duration: 100})
	stats.Record(ChatTrace{Success: false, Duration: 300, Error: "timeout"})

	snap := stats.Snapshot()
	assert.Equal(t, 2, snap.Requests)
	assert.Equal(t, 1, snap.Failures)
	assert.EqualValues(t, 200, snap.AvgDuration)
	assert.Equal(t, "timeout", snap.LastError)
}
