package process

import "fmt"

// Verbosity controls how many arguments Display shows.
type Verbosity struct {
	verbose bool
	maxArgs int
}

// Verbose shows every argument.
var Verbose = Verbosity{verbose: true}

// Brief shows at most maxArgs arguments. Negative values are treated as zero.
func Brief(maxArgs int) Verbosity {
	if maxArgs < 0 {
		maxArgs = 0
	}
	return Verbosity{maxArgs: maxArgs}
}

// VerboseIf returns Verbose if verbose is true and Brief(maxArgs) otherwise.
func VerboseIf(verbose bool, maxArgs int) Verbosity {
	if verbose {
		return Verbose
	}
	return Brief(maxArgs)
}

// IsVerbose reports whether all arguments are shown.
func (v Verbosity) IsVerbose() bool {
	return v.verbose
}

// MaxArgs returns the argument limit of a Brief verbosity. It is meaningless for Verbose.
func (v Verbosity) MaxArgs() int {
	return v.maxArgs
}

func (v Verbosity) String() string {
	if v.verbose {
		return "verbose"
	}
	return fmt.Sprintf("brief(%d)", v.maxArgs)
}
