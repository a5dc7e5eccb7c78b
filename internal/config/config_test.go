package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
services:
  api:
    base: http://127.0.0.1:4000
    commands:
      start: ./start.sh
      stop: ./stop.sh
      check: ./check.sh
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 3000, cfg.Port)

	svc := cfg.Services["api"]
	require.Equal(t, Duration(5*time.Minute), svc.IdleTimeout)
	require.Equal(t, Duration(30*time.Second), svc.StartTimeout)
	require.Equal(t, HealthTCP, svc.HealthCheck.Type)
	require.Len(t, svc.Routes, 1)
	require.Equal(t, "api", svc.Routes[0].Host)
	require.Equal(t, svc.Base, svc.Routes[0].Target)
}

func TestLoadParsesDurationStringsAndSecondsFallback(t *testing.T) {
	path := writeTempConfig(t, `
services:
  api:
    base: http://127.0.0.1:4000
    idleTimeout: "10s"
    startTimeout: 45
    commands:
      start: ./start.sh
      stop: ./stop.sh
      check: ./check.sh
    healthCheck:
      type: tcp
      timeout: "2s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	svc := cfg.Services["api"]
	require.Equal(t, Duration(10*time.Second), svc.IdleTimeout)
	require.Equal(t, Duration(45*time.Second), svc.StartTimeout)
	require.Equal(t, Duration(2*time.Second), svc.HealthCheck.Timeout)
}

func TestLoadRejectsUnparsableDuration(t *testing.T) {
	path := writeTempConfig(t, `
services:
  api:
    base: http://127.0.0.1:4000
    idleTimeout: "not-a-duration"
    proxyOnly: true
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsPortCollisionWithAdmin(t *testing.T) {
	path := writeTempConfig(t, `
port: 3000
adminApi:
  enabled: true
  port: 9000
services:
  api:
    base: http://127.0.0.1:4000
    port: 9000
    commands:
      start: ./start.sh
      stop: ./stop.sh
      check: ./check.sh
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingCommandsWhenNotProxyOnly(t *testing.T) {
	path := writeTempConfig(t, `
services:
  api:
    base: http://127.0.0.1:4000
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadAllowsProxyOnlyWithoutCommands(t *testing.T) {
	path := writeTempConfig(t, `
services:
  api:
    base: http://127.0.0.1:4000
    proxyOnly: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Services["api"].ProxyOnly)
}

func TestLoadRejectsDuplicateHostname(t *testing.T) {
	path := writeTempConfig(t, `
services:
  api:
    base: http://127.0.0.1:4000
    host: shared.local
    proxyOnly: true
  api2:
    base: http://127.0.0.1:4001
    host: shared.local
    proxyOnly: true
`)
	_, err := Load(path)
	require.Error(t, err)
}
