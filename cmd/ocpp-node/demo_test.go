package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDemoRun(t *testing.T) {
	dir := t.TempDir()
	d, err := newDemo(demoOptions{
		Heartbeats:     2,
		Interval:       10 * time.Millisecond,
		ProtocolLogDir: dir,
		Logger:         quietLogger(),
	})
	require.NoError(t, err)

	sum, err := d.run(context.Background())
	require.NoError(t, err)
	require.NoError(t, d.Close())

	assert.Equal(t, 4, sum.OK)
	assert.Equal(t, 0, sum.Failed)
	assert.True(t, sum.Last.IsOK())

	f, err := os.Open(filepath.Join(dir, DefaultRelayID+".olog"))
	require.NoError(t, err)
	defer f.Close()
	events, err := log.ReadAll(f)
	require.NoError(t, err)

	var forwards int
	for _, e := range events {
		if e.Route != nil && e.Route.Decision == "FORWARD" {
			forwards++
		}
	}
	// Four requests out and four responses back.
	assert.Equal(t, 8, forwards)
}

func TestDemoConfigFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	d, err := newDemo(demoOptions{
		StationConfig: write("station.yaml", "node_id: WB-7\nuplink: GW\nid_policy: fast\n"),
		RelayConfig:   write("relay.yaml", "node_id: GW\nuplink: BACKEND\n"),
		CSMSConfig:    write("csms.yaml", "node_id: BACKEND\n"),
		Heartbeats:    1,
		Interval:      time.Millisecond,
		Logger:        quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	sum, err := d.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.OK)
}

func TestDemoErrors(t *testing.T) {
	_, err := newDemo(demoOptions{Interval: 0, Logger: quietLogger()})
	assert.Error(t, err)

	_, err = newDemo(demoOptions{
		StationConfig: filepath.Join(t.TempDir(), "missing.yaml"),
		Interval:      time.Second,
		Logger:        quietLogger(),
	})
	assert.ErrorContains(t, err, "station")
}

func TestDemoCancelled(t *testing.T) {
	d, err := newDemo(demoOptions{Heartbeats: 2, Interval: time.Minute, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.run(ctx)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	assert.NoError(t, err)
	_, err = newLogger("loud")
	assert.Error(t, err)
}
