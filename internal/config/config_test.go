package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayDefaults(t *testing.T) {
	t.Setenv("TANK_RELAY_ADDR", "")
	c, err := LoadRelay(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, 5, c.MaxConnsPerIP)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("TANK_RELAY_ADDR", ":9000")
	t.Setenv("TANK_MAX_CONNS_PER_IP", "3")

	c, err := LoadRelay(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 3, c.MaxConnsPerIP)

	c, err = LoadRelay([]string{"-addr", ":7000"})
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Addr)
}

func TestBadIntFallsBack(t *testing.T) {
	t.Setenv("TANK_MAX_CONNS_PER_IP", "many")
	c, err := LoadRelay(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaxConnsPerIP)
}

func TestPeerTrimsRelayURL(t *testing.T) {
	c, err := LoadPeer([]string{"-relay", "http://example:8080/", "-room", "duel", "-offline"})
	require.NoError(t, err)
	assert.Equal(t, "http://example:8080", c.RelayURL)
	assert.Equal(t, "duel", c.Room)
	assert.True(t, c.Offline)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TANK_ROOM=fromfile\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("TANK_ROOM", "")
	os.Unsetenv("TANK_ROOM")

	require.NoError(t, LoadEnv())
	c, err := LoadPeer(nil)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", c.Room)
}

func TestLoadEnvMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadEnv())
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, SetupLogging("debug"))
	assert.Error(t, SetupLogging("loud"))
	require.NoError(t, SetupLogging("info"))
}
