package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/analyzer"
	"github.com/zen-systems/chainflow/pkg/validator"
)

func collectEvents(t *testing.T, s *Stream) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events
}

func TestOrchestrateStreamMilestones(t *testing.T) {
	mock := adapter.NewMock().Script("m1", "answer")
	cfg := testConfig()
	cfg.ValidationEnabled = true

	o := New(mock, cfg,
		WithAnalyzer(&stubAnalyzer{result: &analyzer.Result{Complexity: 7, Category: "general"}}),
		WithRouter(&stubRouter{plan: singlePlan("m1", nil, true)}),
		WithValidator(&stubValidator{verdicts: []*validator.Result{{IsValid: true, Score: 8}}}),
	)

	s := o.OrchestrateStream(context.Background(), Request{UserMessage: "hard question"})
	events := collectEvents(t, s)

	result, err := s.Wait()
	require.NoError(t, err)
	require.True(t, result.Successful)

	var progress []float64
	for _, ev := range events {
		require.Equal(t, EventProgress, ev.Type)
		progress = append(progress, ev.Progress)
	}
	require.Equal(t, []float64{0.10, 0.20, 0.30, 0.40, 0.50, 0.70, 0.80, 0.90, 1.0}, progress)

	// Progress only moves forward.
	for i := 1; i < len(progress); i++ {
		require.GreaterOrEqual(t, progress[i], progress[i-1])
	}

	require.Equal(t, "routed to m1", events[3].Message)
	require.Equal(t, "complete", events[len(events)-1].Stage)
}

func TestOrchestrateStreamAnalysisMetadata(t *testing.T) {
	mock := adapter.NewMock().Script("m1", "four")

	o := New(mock, testConfig(),
		WithAnalyzer(&stubAnalyzer{result: &analyzer.Result{Complexity: 2, Category: "general"}}),
		WithRouter(&stubRouter{plan: singlePlan("m1", nil, false)}),
		WithValidator(&stubValidator{}),
	)

	s := o.OrchestrateStream(context.Background(), Request{UserMessage: "what is 2+2"})
	events := collectEvents(t, s)
	_, err := s.Wait()
	require.NoError(t, err)

	require.Equal(t, "analysis complete", events[1].Message)
	require.Equal(t, 2, events[1].Metadata["complexity"])
	require.Equal(t, "general", events[1].Metadata["category"])
	require.Equal(t, "simple path: routing skipped", events[2].Message)
}

func TestOrchestrateStreamCacheHitMessage(t *testing.T) {
	mock := adapter.NewMock().Script("m1", "answer")

	o := New(mock, testConfig(),
		WithAnalyzer(&stubAnalyzer{result: &analyzer.Result{Complexity: 6, Category: "general"}}),
		WithRouter(&stubRouter{plan: singlePlan("m1", nil, false)}),
		WithValidator(&stubValidator{}),
	)

	req := Request{UserMessage: "same question", SessionID: "sess-1"}
	first := o.OrchestrateStream(context.Background(), req)
	collectEvents(t, first)
	_, err := first.Wait()
	require.NoError(t, err)

	second := o.OrchestrateStream(context.Background(), req)
	events := collectEvents(t, second)
	_, err = second.Wait()
	require.NoError(t, err)

	var sawCacheHit bool
	for _, ev := range events {
		if ev.Message == "routed from cache: m1" {
			sawCacheHit = true
		}
	}
	require.True(t, sawCacheHit)
}

func TestOrchestrateStreamTerminalErrorEvent(t *testing.T) {
	o := New(adapter.NewMock(), testConfig(),
		WithAnalyzer(&stubAnalyzer{err: errors.New("analyzer unusable")}),
		WithRouter(&stubRouter{plan: singlePlan("m1", nil, false)}),
		WithValidator(&stubValidator{}),
	)

	s := o.OrchestrateStream(context.Background(), Request{UserMessage: "hello"})
	events := collectEvents(t, s)

	result, err := s.Wait()
	require.Error(t, err)
	require.Nil(t, result)

	// The terminal error event precedes the error from Wait.
	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	require.Contains(t, last.Message, "analyze stage")
}

func TestOrchestrateStreamPersistsInBackground(t *testing.T) {
	store := &captureStore{}
	mock := adapter.NewMock().Script("m1", "answer")

	o := New(mock, testConfig(),
		WithAnalyzer(&stubAnalyzer{result: &analyzer.Result{Complexity: 5, Category: "general"}}),
		WithRouter(&stubRouter{plan: singlePlan("m1", nil, false)}),
		WithValidator(&stubValidator{}),
		WithStore(store),
	)

	s := o.OrchestrateStream(context.Background(), Request{UserMessage: "record this run"})
	collectEvents(t, s)
	_, err := s.Wait()
	require.NoError(t, err)

	// Persistence is fire-and-forget; give the goroutine a moment.
	require.Eventually(t, func() bool {
		return len(store.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
}
