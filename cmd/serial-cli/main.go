// =============================================================================
// main.go - serial-cli Entry Point
// =============================================================================
//
// serial-cli is an interactive shell for talking to devices on a serial
// port. Each line typed at the prompt (or read from a script file) is either
// data to transmit, a local shell command, or a directive:
//
//	send AT+GMR --wait      transmit "AT+GMR\n", then print the reply
//	write id=!(uuidgen)     transmit with the output of uuidgen spliced in
//	read 16                 read up to 16 bytes
//	read OK                 read until the device sends "OK"
//	!ls /dev                run a shell command locally
//	clear                   clear the screen
//	exit                    leave the shell
//
// Usage:
//
//	serial-cli start -p /dev/ttyACM0 -b 115200      interactive shell
//	serial-cli start -p /dev/ttyACM0 setup.txt      run a script
//	serial-cli connect -p /dev/ttyACM0              print everything received
//	serial-cli ports                                list serial ports
//	serial-cli config -b 115200 --save              store defaults
//	serial-cli version
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/shayne/yargs"
	"go.uber.org/zap"

	"github.com/commonProgrammerr/serial-cli/serialshell"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const appName = "serial-cli"

// portFlags are accepted by every subcommand that opens a port.
type portFlags struct {
	Port     string `flag:"port" short:"p" help:"serial port to use (default /dev/ttyUSB0, COM3 on Windows)"`
	BaudRate int    `flag:"baudrate" short:"b" help:"baud rate (default 9600)"`
	Timeout  int    `flag:"timeout" help:"read timeout in seconds (default 5)"`
	Verbose  bool   `flag:"verbose" help:"print byte counts after each send"`
	Config   string `flag:"config" help:"path to a TOML config file"`
	LogLevel string `flag:"log-level" help:"diagnostic log level (debug, info, warn, error)"`
}

// configFlags are the port flags plus --save for the config subcommand.
type configFlags struct {
	Port     string `flag:"port" short:"p" help:"serial port to store"`
	BaudRate int    `flag:"baudrate" short:"b" help:"baud rate to store"`
	Timeout  int    `flag:"timeout" help:"read timeout in seconds to store"`
	Verbose  bool   `flag:"verbose" help:"store verbose telemetry"`
	Config   string `flag:"config" help:"path to a TOML config file"`
	LogLevel string `flag:"log-level" help:"diagnostic log level to store"`
	Save     bool   `flag:"save" help:"write the settings to the config file"`
}

func (f configFlags) portFlags() portFlags {
	return portFlags{
		Port:     f.Port,
		BaudRate: f.BaudRate,
		Timeout:  f.Timeout,
		Verbose:  f.Verbose,
		Config:   f.Config,
		LogLevel: f.LogLevel,
	}
}

func (f portFlags) validate() error {
	if f.BaudRate < 0 {
		return usageError{message: "baud rate must be positive"}
	}
	if f.Timeout < 0 {
		return usageError{message: "timeout must not be negative"}
	}
	return nil
}

var helpConfig = yargs.HelpConfig{
	Command: yargs.CommandInfo{
		Name:        appName,
		Description: "Interactive shell for serial devices",
		Examples: []string{
			"serial-cli start -p /dev/ttyACM0 -b 115200",
			"serial-cli start -p /dev/ttyACM0 script.txt",
			"serial-cli connect -p /dev/ttyACM0",
			"serial-cli ports",
			"serial-cli config -p /dev/ttyACM0 -b 115200 --save",
			"serial-cli --version",
		},
	},
	SubCommands: map[string]yargs.SubCommandInfo{
		"start": {
			Name:        "start",
			Description: "Start an interactive shell session, or run script files",
			Usage:       "[--port <port>] [--baudrate <n>] [--timeout <s>] [FILES...]",
			Examples: []string{
				"serial-cli start",
				"serial-cli start --verbose -p COM4",
				"serial-cli start init.txt test.txt",
				"cat script.txt | serial-cli start -",
			},
		},
		"connect": {
			Name:        "connect",
			Description: "Connect to the serial port and print everything received",
			Usage:       "[--port <port>] [--baudrate <n>] [--timeout <s>]",
		},
		"ports": {
			Name:        "ports",
			Description: "List the serial ports on this machine",
		},
		"config": {
			Name:        "config",
			Description: "Show the effective settings, or save them with --save",
			Usage:       "[--port <port>] [--baudrate <n>] [--timeout <s>] [--save]",
		},
		"version": {
			Name:        "version",
			Description: "Show version",
		},
	},
}

// sessionPort is everything a session needs from an open port.
// *serialshell.PortTransport implements it.
type sessionPort interface {
	Name() string
	serialshell.Transport
	receiver
	io.Closer
}

// cli carries the process environment so that handlers can be exercised
// with fakes.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	openPort   func(serialshell.PortConfig) (sessionPort, error)
	listPorts  func() ([]string, error)
	lineEditor func(historyPath string) LineSource
	onSignal   func(cleanup func())
}

func newCLI() *cli {
	return &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		openPort: func(cfg serialshell.PortConfig) (sessionPort, error) {
			return serialshell.OpenPort(cfg)
		},
		listPorts: serialshell.ListPorts,
		lineEditor: func(historyPath string) LineSource {
			return NewLineEditor(historyPath)
		},
		onSignal: setupSignalHandler,
	}
}

// usageError reports bad command-line input.
type usageError struct {
	message string
}

func (e usageError) Error() string {
	return e.message
}

// silentError has already been shown to the user.
type silentError struct {
	err error
}

func (e silentError) Error() string {
	return e.err.Error()
}

func (e silentError) Unwrap() error {
	return e.err
}

func main() {
	os.Exit(newCLI().run(os.Args[1:]))
}

// run dispatches args and returns the process exit status.
func (c *cli) run(args []string) int {
	handlers := map[string]yargs.SubcommandHandler{
		"start":   c.handleStart,
		"connect": c.handleConnect,
		"ports":   c.handlePorts,
		"config":  c.handleConfig,
		"version": c.handleVersion,
	}
	err := yargs.RunSubcommands(context.Background(), normalizeArgs(args), helpConfig, struct{}{}, handlers)
	if err == nil || errors.Is(err, yargs.ErrShown) {
		return 0
	}
	return c.reportError(err)
}

func (c *cli) reportError(err error) int {
	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(c.stderr, usageErr.message)
		return 2
	}
	var quietErr silentError
	if !errors.As(err, &quietErr) {
		fmt.Fprintln(c.stderr, "Error:", err)
	}
	return 1
}

// normalizeArgs maps -v/--version and `help <cmd>` onto subcommands.
func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"--help"}
	}
	switch args[0] {
	case "-v", "--version":
		return append([]string{"version"}, args[1:]...)
	case "help":
		if len(args) > 1 {
			return []string{args[1], "--help"}
		}
		return []string{"--help"}
	}
	return args
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-h" || arg == "--help" {
			return true
		}
	}
	return false
}

// subcommandArgs drops the subcommand name if the dispatcher passed it on.
func subcommandArgs(name string, args []string) []string {
	if len(args) > 0 && args[0] == name {
		return args[1:]
	}
	return args
}

func (c *cli) showHelp(name string) error {
	var err error
	if name == "config" {
		_, err = yargs.ParseAndHandleHelp[struct{}, configFlags, struct{}]([]string{name, "--help"}, helpConfig)
	} else {
		_, err = yargs.ParseAndHandleHelp[struct{}, portFlags, struct{}]([]string{name, "--help"}, helpConfig)
	}
	if err != nil && !errors.Is(err, yargs.ErrShown) {
		return err
	}
	return nil
}

// parsePortFlags parses the flags shared by start and connect.
func parsePortFlags(args []string) (portFlags, []string, error) {
	result, err := yargs.ParseFlags[portFlags](args)
	if err != nil {
		return portFlags{}, nil, usageError{message: err.Error()}
	}
	if err := result.Flags.validate(); err != nil {
		return portFlags{}, nil, err
	}
	return result.Flags, result.Args, nil
}

// session holds what start and connect share: configuration, the open port
// and the logger, plus an idempotent cleanup.
type session struct {
	cfg     Config
	port    sessionPort
	logger  *zap.Logger
	console *Console

	closeOnce sync.Once
	closers   []func()
	portOnce  sync.Once
}

// closePort closes the port once; listen mode and cleanup both call it.
func (s *session) closePort() {
	s.portOnce.Do(func() {
		if err := s.port.Close(); err != nil {
			s.logger.Debug("port close failed", zap.Error(err))
		}
	})
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			s.closers[i]()
		}
	})
}

// openSession loads configuration, applies flags and opens the port.
func (c *cli) openSession(flags portFlags) (*session, error) {
	cfg, path, err := loadConfig(flags.Config)
	if err != nil {
		return nil, err
	}
	cfg.applyFlags(flags)

	logger, closeLog, err := newLogger(cfg.Log, c.stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	s := &session{
		cfg:     cfg,
		logger:  logger,
		console: NewConsole(c.stdout, c.stderr),
		closers: []func(){closeLog},
	}
	logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.String("port", cfg.Port),
		zap.Int("baud", cfg.BaudRate),
		zap.Duration("timeout", cfg.Timeout()))

	port, err := c.openPort(cfg.PortConfig())
	if err != nil {
		s.close()
		return nil, err
	}
	s.port = port
	s.closers = append(s.closers, s.closePort)
	logger.Info("port opened", zap.String("port", port.Name()), zap.Int("baud", cfg.BaudRate))
	s.console.Connected(port.Name(), cfg.BaudRate)
	return s, nil
}

func (c *cli) handleStart(ctx context.Context, args []string) error {
	args = subcommandArgs("start", args)
	if hasHelpFlag(args) {
		return c.showHelp("start")
	}
	flags, files, err := parsePortFlags(args)
	if err != nil {
		return err
	}

	// Scripts are checked before the port is opened.
	var batch *BatchSource
	if len(files) > 0 {
		batch, err = NewBatchSource(files)
		if err != nil {
			return err
		}
		batch.stdin = c.stdin
	}

	s, err := c.openSession(flags)
	if err != nil {
		return err
	}
	defer s.close()

	var src LineSource
	if batch != nil {
		src = batch
	} else {
		s.console.Welcome()
		src = c.lineEditor(s.cfg.HistoryFile)
	}
	s.closers = append(s.closers, src.Close)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.onSignal(func() {
		cancel()
		s.close()
	})

	interp := serialshell.NewInterpreter(
		s.port,
		serialshell.NewShellRunner(s.cfg.Shell),
		serialshell.WithLogger(s.logger),
	)
	opts := replOptions{
		prompt:  s.console.Prompt(s.port.Name()),
		verbose: s.cfg.Verbose,
	}
	if err := runREPL(ctx, src, interp, s.console, opts, s.logger); err != nil {
		if batch != nil {
			s.logger.Error("script aborted", zap.String("at", batch.Position()))
		}
		return silentError{err: err}
	}
	return nil
}

func (c *cli) handleConnect(ctx context.Context, args []string) error {
	args = subcommandArgs("connect", args)
	if hasHelpFlag(args) {
		return c.showHelp("connect")
	}
	flags, rest, err := parsePortFlags(args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return usageError{message: fmt.Sprintf("connect takes no arguments, got %s", strings.Join(rest, " "))}
	}

	s, err := c.openSession(flags)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.onSignal(func() {
		cancel()
		s.close()
	})

	s.console.Info("Listening. Press Ctrl-C to stop.")
	if err := runListen(ctx, s.port, closerFunc(s.closePort), s.console, s.logger); err != nil {
		s.console.Error(err)
		return silentError{err: err}
	}
	return nil
}

func (c *cli) handlePorts(_ context.Context, args []string) error {
	args = subcommandArgs("ports", args)
	if hasHelpFlag(args) {
		return c.showHelp("ports")
	}
	ports, err := c.listPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(c.stdout, "No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(c.stdout, p)
	}
	return nil
}

func (c *cli) handleConfig(_ context.Context, args []string) error {
	args = subcommandArgs("config", args)
	if hasHelpFlag(args) {
		return c.showHelp("config")
	}
	result, err := yargs.ParseFlags[configFlags](args)
	if err != nil {
		return usageError{message: err.Error()}
	}
	if len(result.Args) > 0 {
		return usageError{message: fmt.Sprintf("config takes no arguments, got %s", strings.Join(result.Args, " "))}
	}
	flags := result.Flags.portFlags()
	if err := flags.validate(); err != nil {
		return err
	}

	cfg, path, err := loadConfig(flags.Config)
	if err != nil {
		return err
	}
	cfg.applyFlags(flags)

	if !result.Flags.Save {
		data, err := toml.Marshal(cfg)
		if err != nil {
			return err
		}
		if path != "" {
			fmt.Fprintf(c.stdout, "# %s\n", path)
		}
		_, err = c.stdout.Write(data)
		return err
	}
	if path == "" {
		return usageError{message: "no config location found, pass --config"}
	}
	if err := saveConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(c.stdout, "Saved %s\n", path)
	return nil
}

func (c *cli) handleVersion(_ context.Context, args []string) error {
	args = subcommandArgs("version", args)
	if hasHelpFlag(args) {
		return c.showHelp("version")
	}
	fmt.Fprintf(c.stdout, "%s %s\n", appName, version)
	return nil
}

// closerFunc adapts a func to io.Closer.
type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// setupSignalHandler runs cleanup and exits when SIGINT or SIGTERM arrives.
//
// GO CONCEPT: Signals and Goroutines
// ----------------------------------
// signal.Notify delivers signals to a buffered channel instead of killing
// the process. A goroutine blocks on that channel, so the rest of the
// program runs normally until the signal arrives. Cleanup closes the port
// and flushes the history file before exiting.
func setupSignalHandler(cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println()
		cleanup()
		os.Exit(0)
	}()
}
