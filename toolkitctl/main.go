package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/arcanewizards/arcane/protocol"
	"github.com/arcanewizards/arcane/toolkit"
)

const ToolkitCtlVersion = "0.0.1"

const DefaultTimeout = 10 * time.Second

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Toolkit control.

Urls are websocket urls of a toolkit server, e.g. ws://localhost:8080/

Usage:
    toolkitctl tree --url=<url> [--jwt=<jwt>] [--diff=<diff>]
    toolkitctl watch --url=<url> [--jwt=<jwt>] [--diff=<diff>]
        [--lines]
        [--no_color]
    toolkitctl call --url=<url> [--jwt=<jwt>]
        --key=<key>
        --action=<action>
        [--namespace=<namespace>]
        [--timeout=<timeout>]
        [<args_json>]
    toolkitctl message --url=<url> [--jwt=<jwt>] [--diff=<diff>]
        --key=<key>
        --component=<component>
        [--namespace=<namespace>]
        [--timeout=<timeout>]
        [<fields_json>]
    toolkitctl sign-jwt --jwt_key=<jwt_key>
        --subject=<subject>
        [--name=<name>]
        [--expires=<expires>]
    toolkitctl -h | --help
    toolkitctl --version

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --url=<url>                Toolkit websocket url.
    --jwt=<jwt>                Connect jwt, when the server requires one.
    --diff=<diff>              Tree diff encoding of the server, json-patch or merge-patch [default: json-patch].
    --lines                    Print a line diff of the tree on each change.
    --no_color                 Do not color the output.
    --key=<key>                Component key.
    --action=<action>          Call action, e.g. press.
    --component=<component>    Component kind the message is for, e.g. slider_button.
    --namespace=<namespace>    Component namespace [default: core].
    --timeout=<timeout>        How long to wait for the server, e.g. 5s.
    --jwt_key=<jwt_key>        Key that the server verifies connect jwts with.
    --subject=<subject>        Viewer subject.
    --name=<name>              Viewer name.
    --expires=<expires>        Jwt lifetime, e.g. 24h. No expiry if not set.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ToolkitCtlVersion)
	if err != nil {
		panic(err)
	}

	if tree_, _ := opts.Bool("tree"); tree_ {
		printTree(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	} else if call_, _ := opts.Bool("call"); call_ {
		call(opts)
	} else if message_, _ := opts.Bool("message"); message_ {
		message(opts)
	} else if signJwt_, _ := opts.Bool("sign-jwt"); signJwt_ {
		signJwt(opts)
	}
}

func dial(ctx context.Context, opts docopt.Opts) *toolkit.Client {
	url, _ := opts.String("--url")

	settings := toolkit.DefaultClientSettings()
	if jwt, err := opts.String("--jwt"); err == nil {
		settings.Jwt = jwt
	}
	if diff, err := opts.String("--diff"); err == nil {
		differ, err := toolkit.NewDiffer(diff)
		if err != nil {
			Err.Printf("%s\n", err)
			os.Exit(1)
		}
		settings.Differ = differ
	}

	client, err := toolkit.DialClient(ctx, url, settings)
	if err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}
	return client
}

func timeout(opts docopt.Opts) time.Duration {
	timeoutStr, err := opts.String("--timeout")
	if err != nil {
		return DefaultTimeout
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}
	return timeout
}

func componentKey(opts docopt.Opts) int64 {
	key, err := opts.Int("--key")
	if err != nil {
		Err.Printf("--key must be a number\n")
		os.Exit(1)
	}
	return int64(key)
}

// optional json object argument
func jsonArg(opts docopt.Opts, name string) map[string]any {
	argJson, err := opts.String(name)
	if err != nil {
		return nil
	}
	var arg map[string]any
	if err := json.Unmarshal([]byte(argJson), &arg); err != nil {
		Err.Printf("%s must be a json object: %s\n", name, err)
		os.Exit(1)
	}
	return arg
}

// waitForRoot waits for the first tree from the server
func waitForRoot(ctx context.Context, client *toolkit.Client, timeout time.Duration) *protocol.Node {
	waitCtx, waitCancel := context.WithTimeout(ctx, timeout)
	defer waitCancel()

	root, err := client.WaitForTree(waitCtx, func(root *protocol.Node) bool {
		return true
	})
	if err != nil {
		Err.Printf("no tree = %s\n", err)
		os.Exit(1)
	}
	return root
}

func printTree(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := dial(ctx, opts)
	defer client.Close()

	root := waitForRoot(ctx, client, timeout(opts))
	printer := newTreePrinter(!colorEnabled(opts))
	Out.Print(printer.render(root))
}

func watch(opts docopt.Opts) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	client := dial(ctx, opts)
	defer client.Close()

	lines, _ := opts.Bool("--lines")
	printer := newTreePrinter(!colorEnabled(opts))

	// tree callbacks run in the client read loop, in order
	var lastRendering string
	client.AddTreeCallback(func(tree protocol.Snapshot) {
		root, err := protocol.ParseSnapshot(tree)
		if err != nil {
			Err.Printf("tree error = %s\n", err)
			return
		}
		rendering := printer.render(root)
		if lines && lastRendering != "" {
			Out.Print(printer.lineDiff(lastRendering, rendering))
		} else {
			Out.Print(rendering)
		}
		Out.Printf("%s\n", printer.separatorLine(time.Now()))
		lastRendering = rendering
	})

	select {
	case <-ctx.Done():
	case <-client.Done():
		Err.Printf("connection closed\n")
		os.Exit(1)
	}
}

func call(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := dial(ctx, opts)
	defer client.Close()

	namespace, _ := opts.String("--namespace")
	action, _ := opts.String("--action")
	key := componentKey(opts)
	args := jsonArg(opts, "<args_json>")

	callCtx, callCancel := context.WithTimeout(ctx, timeout(opts))
	defer callCancel()

	returnValue, err := client.Call(callCtx, namespace, key, action, args)
	if err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}
	Out.Printf("%s\n", returnValue)
}

func message(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := dial(ctx, opts)
	defer client.Close()

	namespace, _ := opts.String("--namespace")
	component, _ := opts.String("--component")
	key := componentKey(opts)
	fields := jsonArg(opts, "<fields_json>")
	messageTimeout := timeout(opts)

	root := waitForRoot(ctx, client, messageTimeout)
	if root.Find(key) == nil {
		Err.Printf("no component with key %d\n", key)
		os.Exit(1)
	}

	// messages have no response. Wait for the change the message causes, if any,
	// so that the message is written before the connection closes.
	update := make(chan struct{}, 1)
	client.AddTreeCallback(func(tree protocol.Snapshot) {
		select {
		case update <- struct{}{}:
		default:
		}
	})

	if err := client.SendMessage(namespace, key, component, fields); err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}

	select {
	case <-update:
		Out.Printf("updated\n")
	case <-time.After(messageTimeout):
		Out.Printf("sent (no update)\n")
	case <-client.Done():
		Err.Printf("connection closed\n")
		os.Exit(1)
	}
}

func signJwt(opts docopt.Opts) {
	jwtKey, _ := opts.String("--jwt_key")
	subject, _ := opts.String("--subject")

	connectJwt := &toolkit.ConnectJwt{
		Subject: subject,
	}
	if name, err := opts.String("--name"); err == nil {
		connectJwt.Name = name
	}
	if expiresStr, err := opts.String("--expires"); err == nil {
		expires, err := time.ParseDuration(expiresStr)
		if err != nil {
			Err.Printf("%s\n", err)
			os.Exit(1)
		}
		connectJwt.ExpiresAt = time.Now().Add(expires)
	}

	jwt, err := toolkit.SignConnectJwt(connectJwt, []byte(jwtKey))
	if err != nil {
		Err.Printf("%s\n", err)
		os.Exit(1)
	}
	Out.Printf("%s\n", jwt)
}

func colorEnabled(opts docopt.Opts) bool {
	if noColor, _ := opts.Bool("--no_color"); noColor {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
