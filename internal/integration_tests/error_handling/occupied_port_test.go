package integration_tests

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/integration_tests/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_OccupiedPortEndsTheSession expects a development server that cannot
// bind its port to end the run, watchers included, instead of leaving a
// session with no server behind.
func TestRun_OccupiedPortEndsTheSession(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { busy.Close() })
	port := strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)

	p := harness.New(t, map[string]string{
		"assetgrid.hcl": strings.Replace(watchProject, "port     = 0", "port     = "+port, 1),
		"src/main.css":  "a { color: red }",
	})

	// --- Act ---
	done := make(chan error, 1)
	go func() { done <- p.App.Run(context.Background(), "") }()

	// --- Assert ---
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorContains(t, err, "task 'srv' failed")
		assert.ErrorContains(t, err, port)
		assert.NotContains(t, err.Error(), "task 'watching' failed")
	case <-time.After(10 * time.Second):
		t.Fatal("run kept going after the development server failed to start")
	}
	assert.Nil(t, p.App.Session().Server())
}
