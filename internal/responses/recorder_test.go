package responses

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

func TestRecorder(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		r := NewRecorder()
		assert.Equal(t, 0, r.Len())
		assert.Empty(t, r.Events())
	})

	t.Run("keeps duplicates in recording order", func(t *testing.T) {
		r := NewRecorder()
		r.Record(Event{Key: stimulus.KeySpace, Offset: 100 * time.Millisecond, Repetition: 0, Frame: 6})
		r.Record(Event{Key: stimulus.KeySpace, Offset: 100 * time.Millisecond, Repetition: 0, Frame: 6})
		r.Record(Event{Key: stimulus.Key('A'), Offset: 20 * time.Millisecond, Repetition: 1, Frame: 2})

		events := r.Events()
		require.Len(t, events, 3)
		assert.Equal(t, events[0], events[1])
		assert.Equal(t, 1, events[2].Repetition)
		assert.Len(t, r.ForRepetition(0), 2)
		assert.Len(t, r.ForRepetition(1), 1)
		assert.Empty(t, r.ForRepetition(2))
	})

	t.Run("events returns a copy", func(t *testing.T) {
		r := NewRecorder()
		r.Record(Event{Key: stimulus.KeyEnter})
		events := r.Events()
		events[0].Key = stimulus.KeyEscape
		assert.Equal(t, stimulus.KeyEnter, r.Events()[0].Key)
	})
}
