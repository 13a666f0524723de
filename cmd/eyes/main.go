package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/engine"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/mcpclient"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/transport"
)

const defaultMCPURL = "http://" + engine.DefaultHTTPAddr + "/mcp"

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		var err error
		handled := true

		switch os.Args[1] {
		case "call":
			err = runCall(os.Args[2:], os.Stdout)
		case "tools":
			err = runTools(os.Args[2:], os.Stdout)
		case "open", "close", "state", "say":
			err = runControl(os.Args[1], os.Args[2:], os.Stdout)
		case "ports":
			err = runPorts(os.Stdout)
		case "init":
			err = runInit(os.Args[2:], os.Stdout)
		default:
			handled = false
		}

		if handled {
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: eyes [flags]\n       eyes <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n"+
			"  call    Invoke a tool on a running daemon\n"+
			"  tools   List the tools of a running daemon\n"+
			"  open    Open the eyes of a running daemon\n"+
			"  close   Close the eyes of a running daemon\n"+
			"  state   Set the eye state: eyes state <open|close|listening|thinking|speaking>\n"+
			"  say     Show a subtitle: eyes say <text>\n"+
			"  ports   List serial ports\n"+
			"  init    Write a default configuration file\n")
	}

	configPath := flag.String("config", "", "path to configuration file (.yaml or .toml; defaults apply when empty)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	stdio := flag.Bool("mcp", false, "serve MCP on stdin/stdout")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, *stdio); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. A missing file is not
// an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func loadConfig(path string) (engine.Config, error) {
	if path == "" {
		return engine.DefaultConfig(), nil
	}
	return engine.LoadConfig(path)
}

// run starts the daemon and blocks until SIGINT/SIGTERM.
func run(configPath string, stdio bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if stdio {
		cfg.MCP.Stdio = true
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return err
	}

	return eng.Run(ctx)
}

func runCall(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: eyes call [flags] <tool> [json arguments]\n\nExample: eyes call eye.state '{\"state\":\"listening\"}'\n\nFlags:\n")
		fs.PrintDefaults()
	}
	url := fs.String("url", defaultMCPURL, "MCP endpoint of the daemon")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errors.New("call: expected a tool name and optional JSON arguments")
	}

	var input json.RawMessage
	if fs.NArg() == 2 {
		input = json.RawMessage(fs.Arg(1))
		if !json.Valid(input) {
			return fmt.Errorf("call: arguments are not valid JSON: %s", fs.Arg(1))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := mcpclient.Dial(ctx, *url)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	text, err := client.Call(ctx, fs.Arg(0), input)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, text)
	return err
}

func runTools(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	url := fs.String("url", defaultMCPURL, "MCP endpoint of the daemon")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := mcpclient.Dial(ctx, *url)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	tools, err := client.Tools(ctx)
	if err != nil {
		return err
	}

	for _, t := range tools {
		if _, err := fmt.Fprintf(out, "%-14s %s\n", t.Name, t.Description); err != nil {
			return err
		}
	}

	return nil
}

// runControl drives one eye control on a running daemon. Arguments are
// checked before dialing.
func runControl(cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	url := fs.String("url", defaultMCPURL, "MCP endpoint of the daemon")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var control func(context.Context, *mcpclient.Client) error
	switch cmd {
	case "open":
		control = func(ctx context.Context, c *mcpclient.Client) error { return c.OpenEye(ctx) }
	case "close":
		control = func(ctx context.Context, c *mcpclient.Client) error { return c.CloseEye(ctx) }
	case "state":
		if fs.NArg() != 1 {
			return errors.New("state: expected one state name")
		}
		s, err := eye.Parse(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}
		control = func(ctx context.Context, c *mcpclient.Client) error { return c.SetState(ctx, s) }
	case "say":
		text := strings.Join(fs.Args(), " ")
		if text == "" {
			return errors.New("say: expected subtitle text")
		}
		control = func(ctx context.Context, c *mcpclient.Client) error { return c.Subtitle(ctx, text) }
	default:
		return fmt.Errorf("unknown control %q", cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := mcpclient.Dial(ctx, *url)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := control(ctx, client); err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, "ok")
	return err
}

func runPorts(out io.Writer) error {
	ports, err := transport.SerialPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		_, err = fmt.Fprintln(out, "no serial ports found")
		return err
	}

	for _, p := range ports {
		if _, err := fmt.Fprintln(out, p); err != nil {
			return err
		}
	}

	return nil
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "eyes.yaml", "path of the configuration file to write")
	port := fs.String("serial", "", "serial port of the screen (stdout transport when empty)")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return writeDefaultConfig(*path, *port, *force, out)
}

func writeDefaultConfig(path, port string, force bool, out io.Writer) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("init: %s already exists (use -force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("init: %w", err)
		}
	}

	cfg := engine.DefaultConfig()
	if port != "" {
		cfg.Display.Transport = transport.Config{
			Kind:   transport.KindSerial,
			Serial: transport.SerialConfig{Port: port, BaudRate: transport.DefaultBaudRate},
		}
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("init: write %s: %w", path, err)
	}

	_, err = fmt.Fprintf(out, "Wrote %s\n", path)
	return err
}
