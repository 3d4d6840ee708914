package bus

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct {
	Name string
}

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type fakeMetrics struct {
	counts map[string]int
	timers map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counts: map[string]int{}, timers: map[string]int{}}
}

func (m *fakeMetrics) StartTimer(metric, label string) func() {
	return func() { m.timers[metric+"/"+label]++ }
}

func (m *fakeMetrics) Increment(metric, label string) {
	m.counts[metric+"/"+label]++
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) {
	l.lines = append(l.lines, "debug:"+msg)
}
func (l *recordingLogger) Info(msg string, _ ...interface{}) { l.lines = append(l.lines, "info:"+msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.lines = append(l.lines, "error:"+msg)
}

func TestCommandBus_Send(t *testing.T) {
	b := NewCommandBus()
	var got []string
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(_ context.Context, cmd Command) error {
		got = append(got, cmd.(pingCommand).Name)
		return nil
	})))

	require.NoError(t, b.Send(context.Background(), pingCommand{Name: "a"}))
	assert.Equal(t, []string{"a"}, got)
}

func TestCommandBus_Errors(t *testing.T) {
	handlerErr := errors.New("boom")
	b := NewCommandBus()
	calls := 0
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		calls++
		return handlerErr
	})))

	t.Run("duplicate registration", func(t *testing.T) {
		err := b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error { return nil }))
		assert.Error(t, err)
	})

	t.Run("invalid command is not dispatched", func(t *testing.T) {
		err := b.Send(context.Background(), pingCommand{})
		assert.ErrorContains(t, err, "name is required")
		assert.Equal(t, 0, calls)
	})

	t.Run("handler error is wrapped", func(t *testing.T) {
		err := b.Send(context.Background(), pingCommand{Name: "x"})
		assert.ErrorIs(t, err, handlerErr)
	})

	t.Run("no handler", func(t *testing.T) {
		err := NewCommandBus().Send(context.Background(), pingCommand{Name: "x"})
		assert.ErrorIs(t, err, ErrHandlerNotFound)
	})
}

func TestCommandBus_MiddlewareOrder(t *testing.T) {
	var trace []string
	tag := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				trace = append(trace, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	b := NewCommandBus(tag("outer"), tag("inner"))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		trace = append(trace, "handler")
		return nil
	})))

	require.NoError(t, b.Send(context.Background(), pingCommand{Name: "x"}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestMetricsAndLoggingMiddleware(t *testing.T) {
	metrics := newFakeMetrics()
	logger := &recordingLogger{}
	fail := true

	b := NewCommandBus(LoggingMiddleware(logger), MetricsMiddleware(metrics))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		if fail {
			return fmt.Errorf("failed")
		}
		return nil
	})))

	assert.Error(t, b.Send(context.Background(), pingCommand{Name: "x"}))
	fail = false
	assert.NoError(t, b.Send(context.Background(), pingCommand{Name: "x"}))

	assert.Equal(t, 2, metrics.counts["command_count/pingCommand"])
	assert.Equal(t, 1, metrics.counts["command_errors/pingCommand"])
	assert.Equal(t, 2, metrics.timers["command_duration/pingCommand"])
	assert.Contains(t, logger.lines, "error:Command failed")
	assert.Contains(t, logger.lines, "debug:Command succeeded")
}
