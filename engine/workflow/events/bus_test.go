package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	t.Parallel()

	t.Run("Should deliver published events to every subscriber", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		ch1, cancel1 := bus.Subscribe(4)
		defer cancel1()
		ch2, cancel2 := bus.Subscribe(4)
		defer cancel2()

		bus.Publish(New(WorkflowStarted, WorkflowStartedData{Workflow: "wf"}))

		for _, ch := range []<-chan Event{ch1, ch2} {
			evt := <-ch
			assert.Equal(t, WorkflowStarted, evt.Type)
			assert.False(t, evt.Time.IsZero())
			data, ok := evt.Data.(WorkflowStartedData)
			require.True(t, ok)
			assert.Equal(t, "wf", data.Workflow)
		}
	})

	t.Run("Should drop events rather than block on a full buffer", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		ch, cancel := bus.Subscribe(1)
		defer cancel()

		bus.Publish(New(WorkflowProgress, WorkflowProgressData{Step: 0}))
		bus.Publish(New(WorkflowProgress, WorkflowProgressData{Step: 1}))

		evt := <-ch
		assert.Equal(t, 0, evt.Data.(WorkflowProgressData).Step)
		select {
		case extra := <-ch:
			t.Fatalf("expected second event to be dropped, got %v", extra.Type)
		default:
		}
	})

	t.Run("Should stop delivering after cancel", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		ch, cancel := bus.Subscribe(4)
		cancel()
		bus.Publish(New(WorkflowCompleted, nil))
		_, ok := <-ch
		assert.False(t, ok)
	})

	t.Run("Should make cancel idempotent", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		_, cancel := bus.Subscribe(1)
		cancel()
		cancel()
	})

	t.Run("Should close subscriber channels on bus close", func(t *testing.T) {
		bus := NewBus()
		ch, cancel := bus.Subscribe(1)
		defer cancel()
		bus.Close()
		_, ok := <-ch
		assert.False(t, ok)
		bus.Publish(New(WorkflowStarted, nil))
	})

	t.Run("Should hand a closed channel to subscribers after close", func(t *testing.T) {
		bus := NewBus()
		bus.Close()
		ch, cancel := bus.Subscribe(1)
		defer cancel()
		_, ok := <-ch
		assert.False(t, ok)
	})
}
