// Command loxlang runs LoxLang source files and provides a REPL, the same
// way mag's CLI wraps the Maggie VM for command-line use.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/loxlang/internal/chunk"
	"github.com/chazu/loxlang/internal/compiler"
	"github.com/chazu/loxlang/internal/config"
	"github.com/chazu/loxlang/internal/treewalk"
	"github.com/chazu/loxlang/internal/vm"
)

func main() {
	dumpChunk := flag.String("dump-chunk", "", "serialize the compiled top-level chunk to the given file as CBOR and exit")
	treeWalk := flag.Bool("tree-walk", false, "use the tree-walking evaluator instead of the bytecode VM")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loxlang [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "With no script, starts a REPL.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Usage: loxlang [options] [script]")
		os.Exit(64)
	}

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "loxlang: %v\n", err)
		os.Exit(64)
	}
	commonlog.Configure(logVerbosity(cfg.Log.Level), nil)

	if len(args) == 1 {
		os.Exit(runFile(args[0], cfg, *dumpChunk, *treeWalk))
	}
	runREPL(cfg, *treeWalk)
}

// logVerbosity maps loxlang.toml's [log] level string onto commonlog's
// integer verbosity scale (0 quietest, higher is chattier), the same table
// the teacher's LSP server would use to turn a config string into the
// commonlog/simple backend's threshold.
func logVerbosity(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 4
	case "info":
		return 2
	case "warn", "warning":
		return 1
	case "error":
		return 1
	default:
		return 0
	}
}

// interpreter is the common surface both front ends present to the CLI, so
// runFile/runREPL don't need to know which one they're driving.
type interpreter interface {
	Interpret(source string) error
}

func runFile(path string, cfg *config.Config, dumpChunkPath string, treeWalk bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loxlang: %v\n", err)
		return 74
	}

	if dumpChunkPath != "" {
		return dumpCompiledChunk(string(source), dumpChunkPath)
	}

	var in interpreter
	if treeWalk {
		in = treewalk.New()
	} else {
		in = vm.New(cfg.VMConfig())
	}

	if err := in.Interpret(string(source)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isCompileError(err) {
			return 65
		}
		return 70
	}
	return 0
}

func isCompileError(err error) bool {
	return strings.HasPrefix(err.Error(), "compile error:")
}

func dumpCompiledChunk(source, outPath string) int {
	m := vm.New(vm.DefaultConfig())
	fn, compileErrs := compiler.Compile(source, m)
	if len(compileErrs) > 0 {
		for _, e := range compileErrs {
			fmt.Fprintln(os.Stderr, e)
		}
		return 65
	}
	data, err := chunk.Marshal(fn.Chunk, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loxlang: %v\n", err)
		return 70
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "loxlang: %v\n", err)
		return 74
	}
	return 0
}

// runREPL reads one line at a time, growing the buffer while braces remain
// unbalanced so a multi-line function or class declaration can be entered
// without the parser seeing a premature EOF.
func runREPL(cfg *config.Config, treeWalk bool) {
	var in interpreter
	if treeWalk {
		in = treewalk.New()
	} else {
		in = vm.New(cfg.VMConfig())
	}

	scanner := bufio.NewScanner(os.Stdin)
	var pending strings.Builder
	depth := 0

	prompt := func() {
		if depth > 0 {
			fmt.Print("... ")
		} else {
			fmt.Print("> ")
		}
	}

	prompt()
	for scanner.Scan() {
		line := scanner.Text()
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		pending.WriteString(line)
		pending.WriteByte('\n')

		if depth > 0 {
			prompt()
			continue
		}

		source := pending.String()
		pending.Reset()
		depth = 0

		if strings.TrimSpace(source) != "" {
			if err := in.Interpret(source); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		prompt()
	}
	fmt.Println()
}
