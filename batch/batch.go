// Package batch splits an audience into provider-sized batches and runs the batches
// for one language group, isolating per-batch failures from each other.
package batch

import (
	"context"

	"github.com/sirupsen/logrus"
)

// DefaultSize is the push provider's multicast limit.
const DefaultSize = 500

// SendFunc delivers one batch of tokens, returning the per-recipient success and
// failure counts. A non-nil error means the whole batch failed.
type SendFunc func(ctx context.Context, tokens []string) (successes, failures int, err error)

// Report holds the aggregate outcome of one language group's dispatch.
type Report struct {
	Language  string
	Batches   int
	Successes int
	Failures  int
}

// Split divides a token list into batches of at most size tokens, preserving order.
func Split(tokens []string, size int) [][]string {
	if size <= 0 {
		size = DefaultSize
	}
	var batches [][]string
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		batches = append(batches, tokens[start:end])
	}
	return batches
}

// Run dispatches one language group's tokens batch by batch. Batches are sequential
// within the group; a failed batch is counted and the remaining batches still run.
func Run(ctx context.Context, language string, tokens []string, size int, send SendFunc, log *logrus.Entry) Report {
	report := Report{Language: language}

	for _, tokens := range Split(tokens, size) {
		report.Batches++
		successes, failures, err := send(ctx, tokens)
		if err != nil {
			// The whole batch failed. Count it and move on to the next one.
			report.Failures += len(tokens)
			log.WithError(err).WithFields(logrus.Fields{
				"language": language,
				"batch":    report.Batches,
				"tokens":   len(tokens),
			}).Error("batch dispatch failed")
			continue
		}
		report.Successes += successes
		report.Failures += failures
	}

	log.WithFields(logrus.Fields{
		"language":  language,
		"batches":   report.Batches,
		"successes": report.Successes,
		"failures":  report.Failures,
	}).Info("language group dispatched")

	return report
}
