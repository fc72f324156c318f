package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasi-sockets/errors"
	"github.com/wippyai/wasi-sockets/host"
	"github.com/wippyai/wasi-sockets/platform/native"
	"github.com/wippyai/wasi-sockets/socket"
)

type options struct {
	wasm         string
	allow        string
	env          string
	argv         string
	maxFDs       int
	unrestricted bool
	verbose      bool
	quiet        bool
}

func main() {
	var (
		opts        options
		interactive bool
	)
	flag.StringVar(&opts.wasm, "wasm", "", "Path to a wasip1 module")
	flag.StringVar(&opts.allow, "allow", "", "Addresses the guest may use (CIDR,IP,private,{{template}})")
	flag.BoolVar(&opts.unrestricted, "unrestricted", false, "Allow every address")
	flag.IntVar(&opts.maxFDs, "max-fds", 64, "Maximum open socket descriptors (0 = unlimited)")
	flag.StringVar(&opts.env, "env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
	flag.StringVar(&opts.argv, "argv", "", "Guest arguments (comma-separated)")
	flag.BoolVar(&opts.verbose, "v", false, "Log every socket call")
	flag.BoolVar(&interactive, "i", false, "Interactive mode with TUI")
	flag.Parse()

	if opts.wasm == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasisock -wasm <module.wasm> [-allow 127.0.0.1/8,...] [-env K=V,...] [-argv a,b]")
		fmt.Fprintln(os.Stderr, "       wasisock -wasm <module.wasm> -unrestricted")
		fmt.Fprintln(os.Stderr, "       wasisock -wasm <module.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run(context.Background(), opts, os.Stdout, os.Stderr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(int(code))
}

func newLogger(opts options) (*zap.Logger, error) {
	if opts.quiet {
		return zap.NewNop(), nil
	}
	if opts.verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

// newModule builds the socket host module described by opts.
func newModule(opts options, log *zap.Logger) (*host.Module, error) {
	socket.SetLogger(log)
	host.SetLogger(log)

	mod := host.New(native.New()).
		WithLogger(log).
		WithMaxDescriptors(opts.maxFDs)
	if opts.unrestricted {
		return mod.Unrestricted(), nil
	}
	prefixes, err := parseAllow(opts.allow)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "parse -allow")
	}
	if len(prefixes) == 0 {
		log.Warn("no -allow ranges given; every bind and connect will be denied")
	}
	return mod.WithAllow(prefixes...), nil
}

// run executes the guest to completion and returns its exit code. ready,
// when non-nil, sees the module before the guest starts.
func run(ctx context.Context, opts options, stdout, stderr io.Writer, ready func(*host.Module)) (uint32, error) {
	bin, err := os.ReadFile(opts.wasm)
	if err != nil {
		return 0, errors.Load("read "+opts.wasm, err)
	}

	env, err := parseEnv(opts.env)
	if err != nil {
		return 0, err
	}

	log, err := newLogger(opts)
	if err != nil {
		return 0, fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	mod, err := newModule(opts, log)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := mod.Close(); cerr != nil {
			log.Warn("release guest descriptors", zap.Error(cerr))
		}
	}()

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer r.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, r)
	if _, err := mod.Instantiate(ctx, r); err != nil {
		return 0, err
	}

	args := []string{filepath.Base(opts.wasm)}
	if opts.argv != "" {
		args = append(args, strings.Split(opts.argv, ",")...)
	}
	cfg := wazero.NewModuleConfig().
		WithArgs(args...).
		WithStdout(stdout).
		WithStderr(stderr).
		WithStdin(os.Stdin)
	for _, kv := range env {
		cfg = cfg.WithEnv(kv[0], kv[1])
	}

	if ready != nil {
		ready(mod)
	}

	guest, err := r.InstantiateWithConfig(ctx, bin, cfg)
	if guest != nil {
		defer guest.Close(ctx)
	}

	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, errors.Instantiation(err)
	}

	if left := mod.Entries(); len(left) > 0 {
		log.Info("guest exited with open descriptors", zap.Int("count", len(left)))
	}
	return 0, nil
}

func parseEnv(s string) ([][2]string, error) {
	if s == "" {
		return nil, nil
	}
	var out [][2]string
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("env %q: missing '='", kv))
		}
		out = append(out, [2]string{k, v})
	}
	return out, nil
}
