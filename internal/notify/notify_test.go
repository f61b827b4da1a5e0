package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/treeforge/internal/builder"
	"github.com/specialistvlad/treeforge/internal/testutil"
)

type emitted struct {
	event   string
	payload any
}

type fakeConn struct {
	mu     sync.Mutex
	events []emitted
	err    error
	closed bool
}

func (c *fakeConn) Emit(ev string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	c.events = append(c.events, emitted{event: ev, payload: payload})
	return c.err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.events))
	for _, e := range c.events {
		names = append(names, e.event)
	}
	return names
}

func observed(t *testing.T, root any) (*builder.Builder, *fakeConn, *Forwarder) {
	t.Helper()
	b, err := builder.New(context.Background(), root, builder.WithTempDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Cleanup() })
	c := &fakeConn{}
	f := newForwarder(context.Background(), c)
	require.NoError(t, f.Observe(b))
	return b, c, f
}

func TestForwarder_SuccessfulBuild(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b, c, _ := observed(t, testutil.NewMerge("", testutil.NewVeggies()))

	// --- Act ---
	require.NoError(t, b.Build(context.Background()))

	// --- Assert ---
	assert.Equal(t, []string{"beginBuild", "endNode", "endNode", "endBuild"}, c.names())

	begin := c.events[0].payload.(BuildPayload)
	end := c.events[3].payload.(BuildPayload)
	assert.NotEmpty(t, begin.ID)
	assert.Equal(t, begin.ID, end.ID)
	assert.Empty(t, end.Error)
	assert.False(t, end.Canceled)

	node := c.events[2].payload.(NodePayload)
	assert.Equal(t, 1, node.NodeID)
	assert.Equal(t, "MergePlugin", node.Label)
	require.NotNil(t, node.BuildState)
	assert.GreaterOrEqual(t, node.BuildState.TotalTime, node.BuildState.SelfTime)
}

func TestForwarder_FailedBuild(t *testing.T) {
	t.Parallel()

	b, c, _ := observed(t, testutil.NewFailing(errors.New("whoops"), "boom"))

	require.Error(t, b.Build(context.Background()))

	require.Equal(t, []string{"beginBuild", "endNode", "endBuild"}, c.names())
	node := c.events[1].payload.(NodePayload)
	assert.Contains(t, node.Error, "whoops")
	assert.Contains(t, c.events[2].payload.(BuildPayload).Error, "at FailingPlugin (boom)")
}

func TestForwarder_CanceledBuild(t *testing.T) {
	t.Parallel()

	b, c, _ := observed(t, testutil.NewVeggies())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, b.Build(ctx))

	end := c.events[len(c.events)-1].payload.(BuildPayload)
	assert.True(t, end.Canceled)
	assert.Equal(t, "Build Canceled", end.Error)
}

func TestForwarder_EmitErrorsDoNotFailTheBuild(t *testing.T) {
	t.Parallel()

	b, c, f := observed(t, testutil.NewVeggies())
	c.err = errors.New("offline")

	assert.NoError(t, b.Build(context.Background()))
	require.NoError(t, f.Close())
	assert.True(t, c.closed)
}

func TestDial_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "relative URL", opts: Options{URL: "localhost/socket.io"}, wantErr: "must be absolute"},
		{name: "malformed URL", opts: Options{URL: "http://[::1"}, wantErr: "failed to parse notify URL"},
		{name: "unreachable server", opts: Options{URL: "http://127.0.0.1:1", ConnectTimeout: 500 * time.Millisecond}, wantErr: "127.0.0.1:1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f, err := Dial(context.Background(), tc.opts)

			require.Error(t, err)
			assert.Nil(t, f)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
