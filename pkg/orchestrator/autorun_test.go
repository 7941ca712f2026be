package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/dialectic/pkg/analysis"
)

func TestAutoRunner_RunsToCompletion(t *testing.T) {
	fake := &fakeAnalyzer{}
	o := New(fake)
	o.LoadDocument(document(20000))

	r := NewAutoRunner(o, time.Millisecond)
	r.Start(context.Background())
	waitDone(t, r.Done())

	assert.NoError(t, r.Err())
	assert.False(t, r.Running())
	assert.Equal(t, PhaseIterativeAnalysisComplete, o.Phase())

	reqs := fake.calls()
	require.Len(t, reqs, 5)
	assert.Equal(t, analysis.PhaseConsolidation, reqs[4].Phase)
}

func TestAutoRunner_HaltsOnFailure(t *testing.T) {
	fake := &fakeAnalyzer{}
	fake.push(fakeReply{res: globalResult()}, fakeReply{err: exhausted("bad json")})
	o := New(fake)
	o.LoadDocument(document(20000))

	r := NewAutoRunner(o, time.Millisecond)
	r.Start(context.Background())
	waitDone(t, r.Done())

	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "Chunk 1/3")
	assert.Equal(t, PhaseGlobalAnalysisComplete, o.Phase())
	assert.Len(t, fake.calls(), 2)
}

func TestAutoRunner_StopLetsStepFinish(t *testing.T) {
	fake := &fakeAnalyzer{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := New(fake)
	o.LoadDocument(document(20000))

	r := NewAutoRunner(o, time.Millisecond)
	r.Start(context.Background())
	<-fake.entered
	assert.True(t, r.Running())

	r.Stop()
	close(fake.gate)
	waitDone(t, r.Done())

	assert.NoError(t, r.Err())
	// The in-flight global analysis committed; nothing else was scheduled.
	assert.Equal(t, PhaseGlobalAnalysisComplete, o.Phase())
	assert.Len(t, fake.calls(), 1)
}

func TestAutoRunner_ResetStops(t *testing.T) {
	fake := &fakeAnalyzer{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	o := New(fake)
	o.LoadDocument(document(20000))

	r := NewAutoRunner(o, time.Millisecond)
	r.Start(context.Background())
	<-fake.entered

	o.Reset()
	close(fake.gate)
	waitDone(t, r.Done())

	assert.NoError(t, r.Err())
	assert.Equal(t, PhaseIdle, o.Phase())
}

func TestAutoRunner_ContextCancel(t *testing.T) {
	o := New(&fakeAnalyzer{})
	o.LoadDocument(document(20000))

	ctx, cancel := context.WithCancel(context.Background())
	r := NewAutoRunner(o, time.Hour)
	r.Start(ctx)

	// The first step runs immediately; the loop then waits on the ticker.
	require.Eventually(t, func() bool { return o.Phase() == PhaseGlobalAnalysisComplete }, time.Second, time.Millisecond)
	cancel()
	waitDone(t, r.Done())

	assert.ErrorIs(t, r.Err(), context.Canceled)
}

func TestNewAutoRunner_DefaultInterval(t *testing.T) {
	r := NewAutoRunner(New(&fakeAnalyzer{}), 0)
	assert.Equal(t, DefaultAutoRunInterval, r.interval)
	assert.False(t, r.Running())
}
