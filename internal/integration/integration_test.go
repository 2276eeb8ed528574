//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/mavtrap/internal/testhelpers"
	"github.com/dbehnke/mavtrap/pkg/database"
	"github.com/dbehnke/mavtrap/pkg/decoy"
	"github.com/dbehnke/mavtrap/pkg/events"
	"github.com/dbehnke/mavtrap/pkg/intent"
	"github.com/dbehnke/mavtrap/pkg/mavlink"
	"github.com/dbehnke/mavtrap/pkg/metrics"
	"github.com/dbehnke/mavtrap/pkg/network"
	"github.com/dbehnke/mavtrap/pkg/relay"
)

var gcsEncoder = mavlink.NewEncoder(255, 190)

func heartbeat() []byte {
	return gcsEncoder.Build(mavlink.MsgIDHeartbeat, mavlink.HeartbeatPayload(6, 8, 0, 0, 0))
}

func commandLong(cmd uint16, p1 float64) []byte {
	return gcsEncoder.Build(mavlink.MsgIDCommandLong, mavlink.CommandLongLayout.Encode(mavlink.Values{
		"command": float64(cmd),
		"param1":  p1,
	}))
}

// TestRelayEndToEnd drives a ground station through the relay to a fake
// vehicle and back
func TestRelayEndToEnd(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	addr := suite.StartListener()
	backend := suite.StartBackend()

	link, err := network.Dial(suite.Ctx, network.BackendConfig{Network: "tcp", Address: backend.Addr()}, suite.Logger)
	require.NoError(t, err)
	go func() { _ = link.Start(suite.Ctx) }()
	require.True(t, backend.WaitAccepted(2*time.Second))

	rec := testhelpers.NewMockRecorder()
	engine := relay.NewEngine(relay.Config{NoiseFilter: true}, suite.Listener, link, suite.Logger).
		WithRecorder(rec)
	go func() { _ = engine.Run(suite.Ctx, suite.Listener.Packets()) }()

	gcs := suite.DialGCS(addr)
	sent := append(heartbeat(), commandLong(intent.CmdComponentArmDisarm, 1)...)
	_, err = gcs.Write(sent)
	require.NoError(t, err)

	suite.AssertEventually(func() bool { return bytes.Equal(backend.Received(), sent) },
		2*time.Second, "backend should receive the datagram unchanged")
	require.True(t, rec.WaitLen(2, 2*time.Second))
	assert.Equal(t, []string{"connection", "command"}, rec.Types())

	// Routine polling is forwarded but not logged
	poll := commandLong(intent.CmdRequestAutopilotCaps, 1)
	_, err = gcs.Write(poll)
	require.NoError(t, err)
	suite.AssertEventually(func() bool { return len(backend.Received()) == len(sent)+len(poll) },
		2*time.Second, "backend should receive the polling command")
	assert.Equal(t, 2, rec.Len())

	// Vehicle traffic reaches the ground station
	reply := mavlink.NewEncoder(1, 1).Build(mavlink.MsgIDHeartbeat, mavlink.HeartbeatPayload(2, 3, 0, 4, 0))
	require.NoError(t, backend.Send(reply))
	frames := suite.ReadFrames(gcs, 1, 2*time.Second)
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(mavlink.MsgIDHeartbeat), frames[0].MsgID)

	// Losing the vehicle keeps the listener and event logging alive
	backend.Hangup()
	suite.AssertEventually(func() bool { return !engine.Connected() }, 2*time.Second, "backend should be marked closed")

	_, err = gcs.Write(commandLong(intent.CmdDoSetMode, 1))
	require.NoError(t, err)
	require.True(t, rec.WaitLen(3, 2*time.Second))
}

// TestDecoyEndToEnd checks a ground station sees a live vehicle
func TestDecoyEndToEnd(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	addr := suite.StartListener()
	rec := testhelpers.NewMockRecorder()
	srv := decoy.NewServer(decoy.Config{TelemetryInterval: time.Second}, suite.Listener, suite.Logger).
		WithRecorder(rec)
	go func() { _ = srv.Run(suite.Ctx, suite.Listener.Packets()) }()

	gcs := suite.DialGCS(addr)
	_, err := gcs.Write(heartbeat())
	require.NoError(t, err)

	frames := suite.ReadFrames(gcs, 5, time.Second)
	require.Len(t, frames, 5)
	ids := map[uint8]bool{}
	for _, f := range frames {
		ids[f.MsgID] = true
		assert.Equal(t, uint8(1), f.SystemID)
	}
	assert.True(t, ids[mavlink.MsgIDHeartbeat])
	assert.True(t, ids[mavlink.MsgIDGlobalPositionInt])

	_, err = gcs.Write(gcsEncoder.Build(mavlink.MsgIDParamRequestList, []byte{1, 1}))
	require.NoError(t, err)

	params := 0
	for _, f := range suite.ReadFrames(gcs, 64, 500*time.Millisecond) {
		if f.MsgID == mavlink.MsgIDParamValue {
			params++
		}
	}
	assert.Equal(t, srv.Params().Len(), params)

	require.True(t, rec.WaitLen(3, 2*time.Second))
	assert.Equal(t, []string{"connection", "heartbeat", "request"}, rec.Types()[:3])
}

// TestEventPipeline sends decoy events through the dispatcher into sqlite and
// the metrics collector
func TestEventPipeline(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "events.db")}, suite.Logger)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	collector := metrics.NewCollector()
	dispatcher := events.NewDispatcher(suite.Logger, 64, events.NewStoreSink(db.Events()), collector)
	collector.WithDispatcher(dispatcher.Stats)

	ctx, cancel := context.WithCancel(suite.Ctx)
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	addr := suite.StartListener()
	srv := decoy.NewServer(decoy.Config{}, suite.Listener, suite.Logger).WithRecorder(dispatcher)
	collector.WithTraffic(srv.Stats().Snapshot)
	go func() { _ = srv.Run(suite.Ctx, suite.Listener.Packets()) }()

	gcs := suite.DialGCS(addr)
	_, err = gcs.Write(append(heartbeat(), commandLong(intent.CmdComponentArmDisarm, 1)...))
	require.NoError(t, err)

	suite.AssertEventually(func() bool { return collector.GetEvents("command") == 1 },
		2*time.Second, "collector should count the command")

	cancel()
	require.NoError(t, <-done)

	counts, err := db.Events().CountByType()
	require.NoError(t, err)
	byType := map[string]int64{}
	for _, c := range counts {
		byType[c.Type] = c.Count
	}
	assert.Equal(t, int64(1), byType["connection"])
	assert.Equal(t, int64(1), byType["heartbeat"])
	assert.Equal(t, int64(1), byType["command"])
	assert.Equal(t, uint64(1), collector.GetTotalSessions())
	assert.Equal(t, 1, collector.GetUniquePeers())
}
