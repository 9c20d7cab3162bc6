package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-bridge/engine"
	"github.com/wippyai/wasm-bridge/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to guest wasm module")
		funcName    = flag.String("func", "", "Export to call (optional)")
		callArgs    = flag.String("args", "", "Integer arguments (comma-separated)")
		importMod   = flag.String("module", runtime.DefaultImportModule, "Module name the guest imports bridge functions from")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		wasi        = flag.Bool("wasi", true, "Provide wasi_snapshot_preview1 to the guest")
		list        = flag.Bool("list", false, "List exports and imports and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-args 1,2] [-module env]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))

	logger, err := newLogger(*logLevel, tty && !*interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := &runtime.Config{
		Logger:       logger,
		ImportModule: *importMod,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Engine:       engine.Config{EnableWASI: *wasi},
	}

	if *interactive {
		if !tty {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		// The TUI owns the terminal; guest output would corrupt it.
		cfg.Stdout, cfg.Stderr = nil, nil
		cfg.Logger = zap.NewNop()
		if err := runInteractive(*wasmFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *callArgs, *list, cfg); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(level string, console bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	if console {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func run(wasmFile, funcName, argStr string, listOnly bool, cfg *runtime.Config) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	params, err := parseArgs(argStr)
	if err != nil {
		return err
	}

	rt, err := runtime.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	mod, err := rt.Load(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}
	defer mod.Close(ctx)

	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("\nImports:\n")
	for _, imp := range mod.Imports() {
		fmt.Printf("  %s.%s\n", imp.Module, imp.Name)
	}
	fmt.Printf("\nExports:\n")
	var exports []string
	for _, exp := range mod.Exports() {
		exports = append(exports, exp.Name)
		fmt.Printf("  %s\n", exp.Name)
	}

	if listOnly {
		return nil
	}

	// Instantiation runs _start when the guest has one.
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	if funcName == "" {
		funcName = entryPoint(exports)
		if funcName == "" {
			return nil
		}
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argStr)
	results, err := inst.Call(ctx, funcName, params...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %s\n", formatResults(results))

	arena := inst.Session().Arena()
	cfg.Logger.Debug("call finished",
		zap.String("func", funcName),
		zap.Int("live_refs", arena.Len()),
		zap.Int("functions", inst.Session().Registry().Len()))
	return nil
}

// entryPoint picks a common entry point other than _start, which has
// already run.
func entryPoint(exports []string) string {
	for _, name := range []string{"run", "main"} {
		for _, e := range exports {
			if e == name {
				return name
			}
		}
	}
	return ""
}

func parseArgs(s string) ([]uint64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	params := make([]uint64, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if v, err := strconv.ParseInt(p, 0, 64); err == nil {
			params[i] = uint64(v)
			continue
		}
		v, err := strconv.ParseUint(p, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not an integer", i, p)
		}
		params[i] = v
	}
	return params, nil
}

func formatResults(results []uint64) string {
	if len(results) == 0 {
		return "()"
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = strconv.FormatUint(r, 10)
	}
	return strings.Join(out, ", ")
}
