package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lunlang/bcvm/config"
	"github.com/lunlang/bcvm/internal/bytecode"
	"github.com/lunlang/bcvm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		programPath = flag.String("program", "", "Bytecode image to load and run (required)")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
		maxSteps    = flag.Uint64("max-steps", 0, "Maximum steps before forced stop (0: use config default)")
		stackSize   = flag.Uint64("stack-size", 0, "Stack size in bytes (0: use config default)")
		traceSteps  = flag.Bool("trace", false, "Trace every step to the configured trace file")
		debugRegs   = flag.Bool("debug-regs", false, "Print register state after execution halts")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("bcvm %s (%s)\n", Version, Commit)
		os.Exit(0)
	}

	if *showHelp || *programPath == "" {
		printHelp()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *maxSteps > 0 {
		cfg.VM.MaxSteps = *maxSteps
	}
	if *stackSize > 0 {
		cfg.VM.StackSize = *stackSize
	}
	if *traceSteps {
		cfg.VM.TraceSteps = true
	}

	program, err := bytecode.FromFile(*programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	machine := vm.New(program, cfg.VM.StackSize)

	var traceWriter *os.File
	if cfg.VM.TraceSteps {
		traceWriter, err = os.Create(cfg.VM.TraceFile) // #nosec G304 -- user-specified trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := traceWriter.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close trace file: %v\n", cerr)
			}
		}()
	}

	steps := uint64(0)
	for !machine.Done {
		if cfg.VM.MaxSteps > 0 && steps >= cfg.VM.MaxSteps {
			fmt.Fprintf(os.Stderr, "Step budget exhausted after %d steps\n", steps)
			os.Exit(1)
		}
		if traceWriter != nil {
			fmt.Fprintf(traceWriter, "step=%d %s\n", steps, machine.DebugRegs())
		}
		_ = machine.Step()
		steps++
	}

	if *debugRegs {
		fmt.Println(machine.DebugRegs())
	}

	if machine.Trap != nil {
		fmt.Fprintf(os.Stderr, "Trap: %v\n", machine.Trap)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func printHelp() {
	fmt.Printf(`bcvm %s

Usage: bcvm -program <bytecode-image> [options]

Options:
  -help              Show this help message
  -version           Show version information
  -program FILE      Bytecode image to load and run (required)
  -config FILE       Config file path (default: platform config dir)
  -max-steps N       Maximum steps before forced stop (0: use config default)
  -stack-size N      Stack size in bytes (0: use config default)
  -trace             Trace every step to the configured trace file
  -debug-regs        Print register state after execution halts

Examples:
  bcvm -program program.bc
  bcvm -program program.bc -max-steps 500000 -debug-regs
  bcvm -program program.bc -trace -config myconfig.toml
`, Version)
}
