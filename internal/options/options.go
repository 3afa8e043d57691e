// Package options parses the compiler driver's command-line flags into
// a plain struct, in the hand-rolled scan cmd/sentra/main.go uses rather
// than the standard flag package: aotc's flag set is small and the
// driver wants unknown-flag and missing-value errors worded in its own
// voice instead of flag.Parse's.
package options

import (
	"fmt"
	"strings"
)

// Target names the machine backend to lower to.
type Target string

const (
	TargetARM64   Target = "arm64"
	TargetRISCV64 Target = "riscv64"
)

// Options is the fully-resolved set of driver knobs for one compile.
type Options struct {
	Input      string
	Output     string
	Target     Target
	OptLevel   int
	EmitIR     bool
	Verbose    bool
	DumpPasses bool
}

// Parse scans args (os.Args[1:]) into an Options, applying defaults for
// anything not given. The first non-flag argument is taken as Input.
func Parse(args []string) (*Options, error) {
	opt := &Options{
		Target:   TargetARM64,
		OptLevel: 1,
	}
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-o" || arg == "--output":
			v, err := nextValue(args, &i, arg)
			if err != nil {
				return nil, err
			}
			opt.Output = v
		case arg == "-target" || arg == "--target":
			v, err := nextValue(args, &i, arg)
			if err != nil {
				return nil, err
			}
			switch Target(v) {
			case TargetARM64, TargetRISCV64:
				opt.Target = Target(v)
			default:
				return nil, fmt.Errorf("unrecognized -target %q (want arm64 or riscv64)", v)
			}
		case strings.HasPrefix(arg, "-O"):
			lvl := strings.TrimPrefix(arg, "-O")
			switch lvl {
			case "0":
				opt.OptLevel = 0
			case "1":
				opt.OptLevel = 1
			case "2":
				opt.OptLevel = 2
			default:
				return nil, fmt.Errorf("unrecognized optimization level %q", arg)
			}
		case arg == "-emit-ir" || arg == "--emit-ir":
			opt.EmitIR = true
		case arg == "-v" || arg == "--verbose":
			opt.Verbose = true
		case arg == "-dump-passes" || arg == "--dump-passes":
			opt.DumpPasses = true
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unrecognized flag %q", arg)
		default:
			if opt.Input != "" {
				return nil, fmt.Errorf("unexpected extra argument %q (input already set to %q)", arg, opt.Input)
			}
			opt.Input = arg
		}
		i++
	}
	if opt.Input == "" {
		return nil, fmt.Errorf("no input file given")
	}
	return opt, nil
}

func nextValue(args []string, i *int, flag string) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s requires a value", flag)
	}
	*i++
	return args[*i], nil
}
