package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/google/gops/agent"
	"gopkg.in/yaml.v3"

	"github.com/arcanewizards/arcane/toolkit"
)

const ArcanedVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

// Config overlays the default server and toolkit settings.
// Durations are strings like "10ms".
type Config struct {
	Address        string          `yaml:"address"`
	Path           string          `yaml:"path"`
	UpdateWindow   time.Duration   `yaml:"update_window"`
	// json-patch or merge-patch
	Diff           string          `yaml:"diff"`
	JwtKey         string          `yaml:"jwt_key"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Transport      TransportConfig `yaml:"transport"`
}

type TransportConfig struct {
	SendBufferSize int           `yaml:"send_buffer_size"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

func loadConfig(path string) (*Config, error) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := &Config{}
	if err := yaml.Unmarshal(configBytes, config); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (self *Config) apply(serverSettings *toolkit.ServerSettings, toolkitSettings *toolkit.ToolkitSettings) error {
	if self.Path != "" {
		serverSettings.Path = self.Path
	}
	if self.JwtKey != "" {
		serverSettings.JwtKey = []byte(self.JwtKey)
	}
	if 0 < len(self.AllowedOrigins) {
		allowedOrigins := slices.Clone(self.AllowedOrigins)
		serverSettings.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		}
	}
	if 0 < self.UpdateWindow {
		toolkitSettings.UpdateWindow = self.UpdateWindow
	}
	if self.Diff != "" {
		differ, err := toolkit.NewDiffer(self.Diff)
		if err != nil {
			return err
		}
		toolkitSettings.Differ = differ
	}

	transportSettings := serverSettings.TransportSettings
	if 0 < self.Transport.SendBufferSize {
		transportSettings.SendBufferSize = self.Transport.SendBufferSize
	}
	if 0 < self.Transport.SendTimeout {
		transportSettings.SendTimeout = self.Transport.SendTimeout
	}
	if 0 < self.Transport.PingTimeout {
		transportSettings.PingTimeout = self.Transport.PingTimeout
	}
	if 0 < self.Transport.WriteTimeout {
		transportSettings.WriteTimeout = self.Transport.WriteTimeout
	}
	if 0 < self.Transport.ReadTimeout {
		transportSettings.ReadTimeout = self.Transport.ReadTimeout
	}
	return nil
}

func main() {
	usage := `Arcane toolkit server.

Serves a component tree to viewers over websockets.
Without a layout, a demo tree is served.

Usage:
    arcaned [--address=<address>] [--path=<path>]
        [--config=<config>]
        [--layout=<layout>]
        [--jwt_key=<jwt_key>]
        [--v=<v>]
        [--gops]
    arcaned -h | --help
    arcaned --version

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --address=<address>        Listen address. The config address or :8080 if not set.
    --path=<path>              Websocket path, must start and end with "/".
    --config=<config>          YAML config file.
    --layout=<layout>          YAML layout of the tree.
    --jwt_key=<jwt_key>        Require viewers to present a connect jwt signed with this key.
    --v=<v>                    Log verbosity [default: 0].
    --gops                     Start a gops diagnostics agent.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], RequireVersion())
	if err != nil {
		panic(err)
	}

	// glog reads its settings from the standard flags
	v, _ := opts.String("--v")
	flag.Set("logtostderr", "true")
	flag.Set("v", v)
	flag.CommandLine.Parse([]string{})
	defer glog.Flush()

	serve(opts)
}

func serve(opts docopt.Opts) {
	serverSettings := toolkit.DefaultServerSettings()
	toolkitSettings := toolkit.DefaultToolkitSettings()
	address := ":8080"

	if configPath, err := opts.String("--config"); err == nil {
		config, err := loadConfig(configPath)
		if err != nil {
			Err.Printf("%s\n", err)
			os.Exit(1)
		}
		if err := config.apply(serverSettings, toolkitSettings); err != nil {
			Err.Printf("%s: %s\n", configPath, err)
			os.Exit(1)
		}
		if config.Address != "" {
			address = config.Address
		}
	}
	if address_, err := opts.String("--address"); err == nil {
		address = address_
	}
	if path, err := opts.String("--path"); err == nil {
		serverSettings.Path = path
	}
	if jwtKey, err := opts.String("--jwt_key"); err == nil {
		serverSettings.JwtKey = []byte(jwtKey)
	}

	if gops, _ := opts.Bool("--gops"); gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			Err.Printf("gops error = %s\n", err)
		}
		defer agent.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	tk := toolkit.NewToolkit(ctx, toolkitSettings)
	defer tk.Close()

	var root toolkit.Component
	if layoutPath, err := opts.String("--layout"); err == nil {
		layout, err := toolkit.LoadLayoutFile(toolkit.NewCoreKindRegistry(), layoutPath)
		if err != nil {
			Err.Printf("%s\n", err)
			os.Exit(1)
		}
		logLayout(layout)
		root = layout.Root
	} else {
		root = newDemo(ctx, tk).root
	}
	if err := tk.SetRoot(root); err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}

	tk.AddConnectionCallback(func(connection *toolkit.Connection) {
		Out.Printf("connect %s%s\n", connection.Id, connectionSubject(connection))
	})
	tk.AddDisconnectionCallback(func(connection *toolkit.Connection) {
		Out.Printf("disconnect %s\n", connection.Id)
	})

	server, err := toolkit.NewServer(ctx, tk, serverSettings)
	if err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}

	Out.Printf(
		"Arcane %s on %s%s\n",
		RequireVersion(),
		address,
		serverSettings.Path,
	)

	if err := server.ListenAndServe(address); err != nil {
		Err.Printf("server error = %s\n", err)
		os.Exit(1)
	}
}

func connectionSubject(connection *toolkit.Connection) string {
	if connection.Jwt == nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", connection.Jwt.Subject)
}

// logLayout prints viewer interaction with the named components of a layout.
func logLayout(layout *toolkit.Layout) {
	for name, component := range layout.Named {
		switch v := component.(type) {
		case *toolkit.Button:
			v.AddClickCallback(func(connection *toolkit.Connection) error {
				Out.Printf("%s press %s\n", name, connection.Id)
				return nil
			})
		case *toolkit.SliderButton:
			v.AddChangeCallback(func(value float64, connection *toolkit.Connection) {
				Out.Printf("%s value %s %s\n", name, strconv.FormatFloat(value, 'f', -1, 64), connection.Id)
			})
		case *toolkit.Switch:
			v.AddChangeCallback(func(state toolkit.SwitchState, connection *toolkit.Connection) {
				Out.Printf("%s %s %s\n", name, state, connection.Id)
			})
		case *toolkit.TextInput:
			v.AddChangeCallback(func(value string, connection *toolkit.Connection) {
				Out.Printf("%s value %q %s\n", name, value, connection.Id)
			})
		case *toolkit.Group:
			v.AddTitleChangedCallback(func(title string, connection *toolkit.Connection) {
				Out.Printf("%s title %q %s\n", name, title, connection.Id)
			})
		}
	}
}

func RequireVersion() string {
	if version := os.Getenv("ARCANE_VERSION"); version != "" {
		return version
	}
	return ArcanedVersion
}
