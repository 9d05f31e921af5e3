package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPageRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		start, end int
		want       string
	}{
		{0, 0, "p.1"},
		{0, 1, "p.1-2"},
		{4, 4, "p.5"},
		{2, 7, "p.3-8"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatPageRange(tc.start, tc.end))
	}
}

func TestCountersRecordAndTotal(t *testing.T) {
	t.Parallel()

	var c Counters
	outcomes := []Outcome{
		OutcomeAdded, OutcomeAdded,
		OutcomeUpdated,
		OutcomeSkipped, OutcomeSkipped, OutcomeSkipped,
		OutcomeFailed,
	}
	for _, o := range outcomes {
		c.Record(o)
	}

	assert.Equal(t, Counters{Added: 2, Updated: 1, Skipped: 3, Failed: 1}, c)
	assert.Equal(t, len(outcomes), c.Total())
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	cases := map[Outcome]string{
		OutcomeAdded:   "added",
		OutcomeUpdated: "updated",
		OutcomeSkipped: "skipped",
		OutcomeFailed:  "failed",
		Outcome(99):    "unknown",
	}
	for o, want := range cases {
		assert.Equal(t, want, o.String())
	}
}
