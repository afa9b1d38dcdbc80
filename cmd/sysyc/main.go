package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/sysy-cc/pkg/compiler"
	"github.com/raymyers/sysy-cc/pkg/config"
	"github.com/raymyers/sysy-cc/pkg/diag"
)

var version = "0.1.0"

// ErrMode is returned when the number of mode flags given is not one
var ErrMode = errors.New("exactly one of --koopa, --riscv or --perf is required")

// cliFlags holds the values of one command invocation
type cliFlags struct {
	koopa, riscv, perf bool
	output             string
	configFile         string
	seed               int64
	noPeephole         bool
	verbose            bool
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize the course-style single-dash mode flags for pflag
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// modeFlagNames lists the flags that are also accepted with a single dash
var modeFlagNames = []string{"koopa", "riscv", "perf"}

// normalizeFlags converts single-dash mode flags like -koopa to --koopa
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, name := range modeFlagNames {
			if arg == "-"+name {
				result[i] = "--" + name
				break
			}
		}
	}
	return result
}

// normalizeFlagName accepts underscores in long flag names
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	var f cliFlags
	rootCmd := &cobra.Command{
		Use:   "sysyc (--koopa | --riscv | --perf) <input> [-o output]",
		Short: "sysyc compiles SysY to Koopa IR or RV32 assembly",
		Long: `sysyc compiles a SysY source file. With --koopa it writes the Koopa
IR of the program; with --riscv it writes RV32IM assembly; --perf does
the same with main bracketed by the runtime's timer calls.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := selectMode(&f)
			if err != nil {
				fmt.Fprintf(errOut, "sysyc: error: %v\n", err)
				return err
			}
			opts, err := buildOptions(cmd, &f, errOut)
			if err != nil {
				fmt.Fprintf(errOut, "sysyc: error: %v\n", err)
				return err
			}
			err = compileFile(args[0], mode, f.output, opts, out)
			if err != nil {
				opts.Logger.Error(fmt.Errorf("%s: %w", args[0], err))
			}
			return err
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)
	flags.BoolVar(&f.koopa, "koopa", false, "Emit Koopa IR")
	flags.BoolVar(&f.riscv, "riscv", false, "Emit RV32 assembly")
	flags.BoolVar(&f.perf, "perf", false, "Emit RV32 assembly with timer calls around main")
	flags.StringVarP(&f.output, "output", "o", "", "Write output to file instead of stdout")
	flags.StringVar(&f.configFile, "config", "", "Read backend options from a TOML file")
	flags.Int64Var(&f.seed, "seed", 1, "Seed for the register allocator's spill recoloring order")
	flags.BoolVar(&f.noPeephole, "no-peephole", false, "Disable the peephole pass")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Trace each pass")

	return rootCmd
}

// selectMode checks that exactly one mode flag is set
func selectMode(f *cliFlags) (compiler.Mode, error) {
	var modes []compiler.Mode
	if f.koopa {
		modes = append(modes, compiler.ModeKoopa)
	}
	if f.riscv {
		modes = append(modes, compiler.ModeRISCV)
	}
	if f.perf {
		modes = append(modes, compiler.ModePerf)
	}
	if len(modes) != 1 {
		return 0, ErrMode
	}
	return modes[0], nil
}

// buildOptions loads the options file, if any, and applies the flags the
// user set on top of it
func buildOptions(cmd *cobra.Command, f *cliFlags, errOut io.Writer) (compiler.Options, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.Load(f.configFile); err != nil {
			return compiler.Options{}, err
		}
	}
	if cmd.Flags().Changed("seed") {
		cfg.SpillSeed = f.seed
	}
	if f.noPeephole {
		cfg.Peephole = false
	}
	if f.verbose {
		cfg.LogLevel = "verbose"
	}
	return compiler.Options{
		Options: cfg,
		Logger:  diag.NewLogger(errOut, cfg.Level(), "sysyc"),
	}, nil
}

// compileFile compiles input and writes the result. The output file is
// only created once compilation has succeeded.
func compileFile(input string, mode compiler.Mode, output string, opts compiler.Options, out io.Writer) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	opts.Logger.Tracef("sysyc", "compiling %s in %s mode", input, mode)
	text, err := compiler.Compile(string(src), mode, opts)
	if err != nil {
		return err
	}
	if output == "" || output == "-" {
		_, err = io.WriteString(out, text)
		return err
	}
	return os.WriteFile(output, []byte(text), 0o644)
}
