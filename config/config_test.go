package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Port, 4000)
	assert.Equal(t, cfg.Backend, "file")
	assert.Equal(t, cfg.BodyLimit, int64(2<<20))
	assert.Equal(t, time.Duration(cfg.ShutdownTimeout), 5*time.Second)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	data := []byte(`
port: 5050
backend: sqlite
dataDir: /var/lib/pos
staticDirs: [web]
shutdownTimeout: 12s
relay:
  ratePerSecond: 5
  burst: 10
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Port, 5050)
	assert.Equal(t, cfg.Backend, "sqlite")
	assert.Equal(t, cfg.DataDir, "/var/lib/pos")
	assert.Equal(t, cfg.StaticDirs, []string{"web"})
	assert.Equal(t, time.Duration(cfg.ShutdownTimeout), 12*time.Second)
	assert.Equal(t, cfg.Relay.Burst, 10)
	// untouched keys keep their defaults
	assert.Equal(t, cfg.Host, "0.0.0.0")
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("shutdownTimeout: soon\n"), 0o644)
	_, err := Load(path)
	assert.NotEqual(t, err, nil)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotEqual(t, err, nil)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":            "8081",
		"STORE_BACKEND":   "memory",
		"ALLOWED_ORIGINS": "http://a.local, http://b.local",
		"DEBUG":           "1",
		"HOST":            "  ",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Port, 8081)
	assert.Equal(t, cfg.Backend, "memory")
	assert.Equal(t, cfg.AllowedOrigins, []string{"http://a.local", "http://b.local"})
	assert.Equal(t, cfg.LogLevel, "debug")
	assert.Equal(t, cfg.Host, "0.0.0.0")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend = "postgres"
	assert.NotEqual(t, cfg.Validate(), nil)

	cfg = Default()
	cfg.Port = 0
	assert.NotEqual(t, cfg.Validate(), nil)
}

func TestSetAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.SetAddr(":9000"), nil)
	assert.Equal(t, cfg.Addr(), "0.0.0.0:9000")

	assert.Equal(t, cfg.SetAddr("127.0.0.1:9001"), nil)
	assert.Equal(t, cfg.Addr(), "127.0.0.1:9001")

	assert.NotEqual(t, cfg.SetAddr("nope"), nil)
}
