package sink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PublishAndLines(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "r1", 1, []string{"a", "b"}))
	require.NoError(t, m.Publish(ctx, "r2", 1, []string{"x"}))
	require.NoError(t, m.Publish(ctx, "r1", 2, []string{"c"}))

	assert.Equal(t, []string{"a", "b", "c"}, m.Lines("r1"))
	assert.Equal(t, []string{"x"}, m.Lines("r2"))
	assert.Empty(t, m.Lines("missing"))
	assert.Len(t, m.Entries(), 3)
}

func TestMemory_CopiesLines(t *testing.T) {
	m := NewMemory()
	lines := []string{"a"}
	require.NoError(t, m.Publish(context.Background(), "r", 1, lines))

	lines[0] = "mutated"
	assert.Equal(t, []string{"a"}, m.Lines("r"))
}

func TestLog_Publish(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, l.Publish(context.Background(), "r1", 3, []string{"Hero waits."}))

	out := buf.String()
	assert.Contains(t, out, "Hero waits.")
	assert.Contains(t, out, "run_id=r1")
	assert.Contains(t, out, "turn=3")
}

type failing struct{}

func (failing) Publish(context.Context, string, int, []string) error {
	return errors.New("boom")
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	m := Multi{a, failing{}, b}

	err := m.Publish(context.Background(), "r", 1, []string{"line"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"line"}, a.Lines("r"))
	assert.Equal(t, []string{"line"}, b.Lines("r"))
}
