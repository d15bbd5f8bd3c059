package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	t.Run("Should prepend a seconds field to 5-field expressions", func(t *testing.T) {
		assert.Equal(t, "0 */30 * * * *", Normalize("*/30 * * * *"))
	})
	t.Run("Should leave 6-field expressions unchanged", func(t *testing.T) {
		assert.Equal(t, "0 */30 12-23 * * 2-6", Normalize("0 */30 12-23 * * 2-6"))
	})
	t.Run("Should pass descriptors through unchanged", func(t *testing.T) {
		assert.Equal(t, "@hourly", Normalize("@hourly"))
	})
}

func TestParse(t *testing.T) {
	t.Parallel()
	t.Run("Should accept the extended business-hours form", func(t *testing.T) {
		sched, err := Parse("0 */30 12-23 * * 2-6")
		require.NoError(t, err)
		require.NotNil(t, sched)
		next := sched.Next(time.Date(2026, 3, 4, 13, 1, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2026, 3, 4, 13, 30, 0, 0, time.UTC), next)
	})
	t.Run("Should accept plain 5-field expressions", func(t *testing.T) {
		_, err := Parse("*/15 * * * *")
		require.NoError(t, err)
	})
	t.Run("Should reject malformed expressions", func(t *testing.T) {
		_, err := Parse("not a schedule")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cron expression")
	})
}

func TestScheduler(t *testing.T) {
	t.Run("Should fire a bound function on schedule", func(t *testing.T) {
		s := New()
		defer s.Stop()
		fired := make(chan struct{}, 4)
		require.NoError(t, s.Bind("tick", "* * * * * *", func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		}))
		select {
		case <-fired:
		case <-time.After(3 * time.Second):
			t.Fatal("binding never fired")
		}
	})

	t.Run("Should replace a prior binding under the same name", func(t *testing.T) {
		s := New()
		defer s.Stop()
		second := make(chan struct{}, 4)
		require.NoError(t, s.Bind("job", "0 0 1 1 * *", func() {
			t.Error("prior binding fired after replacement")
		}))
		require.NoError(t, s.Bind("job", "* * * * * *", func() {
			select {
			case second <- struct{}{}:
			default:
			}
		}))
		select {
		case <-second:
		case <-time.After(3 * time.Second):
			t.Fatal("replacement binding never fired")
		}
	})

	t.Run("Should keep the prior binding when the new expression is invalid", func(t *testing.T) {
		s := New()
		defer s.Stop()
		require.NoError(t, s.Bind("job", "0 * * * * *", func() {}))
		require.Error(t, s.Bind("job", "bogus", func() {}))
		assert.True(t, s.Bound("job"))
	})

	t.Run("Should drop bindings on unbind", func(t *testing.T) {
		s := New()
		defer s.Stop()
		require.NoError(t, s.Bind("job", "0 * * * * *", func() {}))
		assert.True(t, s.Bound("job"))
		s.Unbind("job")
		assert.False(t, s.Bound("job"))
	})
}
