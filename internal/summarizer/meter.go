package summarizer

import (
	"context"
	"strings"
	"sync"

	"github.com/temirov/reposum/internal/tokenizer"
)

// Usage is the accumulated input sent to the backend.
type Usage struct {
	Calls  int
	Words  int
	Tokens int
}

// Meter counts calls, words, and tokens of every text passed through it. It is safe for
// concurrent use.
type Meter struct {
	next    Summarizer
	counter tokenizer.Counter
	mutex   sync.Mutex
	usage   Usage
}

// NewMeter decorates next. A nil counter records words only.
func NewMeter(next Summarizer, counter tokenizer.Counter) *Meter {
	return &Meter{next: next, counter: counter}
}

// Summarize records the input and delegates.
func (meter *Meter) Summarize(ctx context.Context, text string) (string, error) {
	words := len(strings.Fields(text))
	tokens := 0
	if meter.counter != nil {
		if result, countError := tokenizer.CountText(meter.counter, text); countError == nil {
			tokens = result.Tokens
		}
	}
	meter.mutex.Lock()
	meter.usage.Calls++
	meter.usage.Words += words
	meter.usage.Tokens += tokens
	meter.mutex.Unlock()
	return meter.next.Summarize(ctx, text)
}

// Usage returns a snapshot of the totals.
func (meter *Meter) Usage() Usage {
	meter.mutex.Lock()
	defer meter.mutex.Unlock()
	return meter.usage
}
