package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(QCRejections.WithLabelValues("too_long"))
	QCRejections.WithLabelValues("too_long").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(QCRejections.WithLabelValues("too_long")), 1e-9)

	before = testutil.ToFloat64(FallbackLines)
	FallbackLines.Add(3)
	assert.InDelta(t, before+3, testutil.ToFloat64(FallbackLines), 1e-9)
}

func TestPipelineDurationRegistered(t *testing.T) {
	PipelineDuration.Observe(1.5)
	assert.Equal(t, 1, testutil.CollectAndCount(PipelineDuration))
}

func TestLabelledCollectors(t *testing.T) {
	LLMTokens.WithLabelValues("anthropic", "output").Add(12)
	assert.GreaterOrEqual(t, testutil.ToFloat64(LLMTokens.WithLabelValues("anthropic", "output")), 12.0)

	BreakerOpen.WithLabelValues("metrics-test").Set(1)
	assert.InDelta(t, 1, testutil.ToFloat64(BreakerOpen.WithLabelValues("metrics-test")), 0)

	Retries.WithLabelValues("metrics-test").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(Retries.WithLabelValues("metrics-test")), 0)
}
