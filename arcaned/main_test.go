package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/arcanewizards/arcane/toolkit"
)

func init() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func TestConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "arcaned.yml")
	err := os.WriteFile(configPath, []byte(`
address: ":9090"
path: /desk/
update_window: 20ms
diff: merge-patch
jwt_key: secret
allowed_origins:
  - https://desk.example.com
transport:
  send_buffer_size: 64
  read_timeout: 1m
`), 0600)
	assert.Equal(t, err, nil)

	config, err := loadConfig(configPath)
	assert.Equal(t, err, nil)
	assert.Equal(t, config.Address, ":9090")

	serverSettings := toolkit.DefaultServerSettings()
	toolkitSettings := toolkit.DefaultToolkitSettings()
	assert.Equal(t, config.apply(serverSettings, toolkitSettings), nil)

	assert.Equal(t, serverSettings.Path, "/desk/")
	assert.Equal(t, serverSettings.JwtKey, []byte("secret"))
	assert.Equal(t, toolkitSettings.UpdateWindow, 20*time.Millisecond)
	_, ok := toolkitSettings.Differ.(*toolkit.MergePatchDiffer)
	assert.Equal(t, ok, true)
	assert.Equal(t, serverSettings.TransportSettings.SendBufferSize, 64)
	assert.Equal(t, serverSettings.TransportSettings.ReadTimeout, time.Minute)
	// not set in the config
	assert.Equal(t, serverSettings.TransportSettings.PingTimeout, toolkit.DefaultWsTransportSettings().PingTimeout)

	r, err := http.NewRequest("GET", "http://localhost:9090/desk/", nil)
	assert.Equal(t, err, nil)
	r.Header.Set("Origin", "https://desk.example.com")
	assert.Equal(t, serverSettings.CheckOrigin(r), true)
	r.Header.Set("Origin", "https://other.example.com")
	assert.Equal(t, serverSettings.CheckOrigin(r), false)
}

func TestConfigError(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "arcaned.yml")
	err := os.WriteFile(configPath, []byte("update_window: soon\n"), 0600)
	assert.Equal(t, err, nil)

	_, err = loadConfig(configPath)
	assert.NotEqual(t, err, nil)

	config := &Config{Diff: "xml-patch"}
	err = config.apply(toolkit.DefaultServerSettings(), toolkit.DefaultToolkitSettings())
	assert.NotEqual(t, err, nil)
}

func TestDemo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tk := toolkit.NewToolkitWithDefaults(ctx)
	defer tk.Close()

	demo := newDemo(ctx, tk)
	err := tk.SetRoot(demo.root)
	assert.Equal(t, err, nil)

	_, err = toolkit.Serialize(demo.root, tk.IdMap())
	assert.Equal(t, err, nil)

	err = demo.goCue()
	assert.Equal(t, err, nil)
	assert.Equal(t, demo.cue.Props().Text, "Cue 1")
	assert.Equal(t, demo.timeline.Props().State.Playing, true)

	goButton := toolkit.NewButton(toolkit.ButtonProps{})
	demo.setBlackout(true, goButton)
	assert.Equal(t, goButton.Props().Error, "Blackout")
	assert.Equal(t, demo.timeline.Props().State.Playing, false)
	err = demo.goCue()
	assert.NotEqual(t, err, nil)
	assert.Equal(t, demo.cue.Props().Text, "Cue 1")

	demo.setBlackout(false, goButton)
	assert.Equal(t, goButton.Props().Error, "")
	err = demo.goCue()
	assert.Equal(t, err, nil)
	assert.Equal(t, demo.cue.Props().Text, "Cue 2")
}

func TestLevelColor(t *testing.T) {
	assert.Equal(t, levelColor(0), "#000000")
	assert.Equal(t, levelColor(100), "#ffffff")
	assert.Equal(t, levelColor(2), "#050505")
}
