package batch

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func makeTokens(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d", i)
	}
	return tokens
}

func TestSplit(t *testing.T) {
	assert := assert.New(t)

	// 1,200 tokens produce exactly three batches of 500, 500, and 200.
	batches := Split(makeTokens(1200), 500)
	if assert.Len(batches, 3) {
		assert.Len(batches[0], 500)
		assert.Len(batches[1], 500)
		assert.Len(batches[2], 200)
	}

	// Batch-internal token order is preserved.
	assert.Equal("token-0", batches[0][0])
	assert.Equal("token-500", batches[1][0])
	assert.Equal("token-1199", batches[2][199])
}

func TestSplitEmpty(t *testing.T) {
	assert := assert.New(t)
	assert.Empty(Split(nil, 500))
}

func TestSplitExactMultiple(t *testing.T) {
	assert := assert.New(t)
	batches := Split(makeTokens(1000), 500)
	assert.Len(batches, 2)
}

func TestRunIsolatesBatchFailures(t *testing.T) {
	assert := assert.New(t)

	// Inject a failure into the second batch and verify that the first and third
	// batches are still attempted.
	var attempted [][]string
	send := func(_ context.Context, tokens []string) (int, int, error) {
		attempted = append(attempted, tokens)
		if len(attempted) == 2 {
			return 0, 0, fmt.Errorf("provider unreachable")
		}
		return len(tokens), 0, nil
	}

	report := Run(context.Background(), "fr", makeTokens(1200), 500, send, testLogger())

	assert.Len(attempted, 3, "a batch failure prevented later batches from being attempted")
	assert.Equal(3, report.Batches)
	assert.Equal(700, report.Successes)
	assert.Equal(500, report.Failures)
	assert.Equal("fr", report.Language)
}

func TestRunAggregatesPartialFailures(t *testing.T) {
	assert := assert.New(t)

	send := func(_ context.Context, tokens []string) (int, int, error) {
		return len(tokens) - 1, 1, nil
	}

	report := Run(context.Background(), "en", makeTokens(1200), 500, send, testLogger())
	assert.Equal(1197, report.Successes)
	assert.Equal(3, report.Failures)
}
