// cmd/sentrac/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"sentra/internal/analyzer"
	"sentra/internal/engine"
	"sentra/internal/engine/remoteprofile"
	"sentra/internal/errors"
	"sentra/internal/ir"
	"sentra/internal/ircompile"
	"sentra/internal/lexer"
	"sentra/internal/loader"
	"sentra/internal/optimizer"
	"sentra/internal/packagestore"
	"sentra/internal/parser"
)

const VERSION = "0.1.0"

// compiledExt is the extension a "build"-produced persisted ir.Module
// carries (ir/binary.go's magic-prefixed format), mirroring the
// teacher's own .snc/.snb compiled-chunk convention in cmd/sentra.
const compiledExt = ".sntr"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	// cmd/sentrac, not the engine, owns the isatty decision (see
	// internal/engine/builtins.go's ColorOutput doc comment). Decided
	// once, here, regardless of which subcommand runs.
	engine.ColorOutput = isatty.IsTerminal(os.Stdout.Fd())

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "run":
		runCommand(rest)
	case "build":
		buildCommand(rest)
	case "check":
		checkCommand(rest)
	case "-v", "--version", "version":
		fmt.Printf("sentrac %s\n", VERSION)
	case "-h", "--help", "help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "sentrac: unknown command %q\n\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`sentrac - Sentra compiler and execution engine

Usage:
  sentrac run [flags] <file.sn | file.sntr>    compile (or load) and execute
  sentrac build [flags] <file.sn> -o <out>     compile and persist IR to disk
  sentrac check <file.sn>                      parse + analyze, report diagnostics
  sentrac version                              print the compiler version

Flags for run/build:
  -O0, -O1, -O2     optimizer level (default -O2, see internal/optimizer)
  -cache <dsn>       packagestore DSN for the on-disk bytecode cache, e.g.
                     sqlite::memory: or sqlite:./cache.db
  -profile          print an advisory call-count/timing summary after running
  -remote-profile <addr>  stream live profile samples to websocket clients
                          attached at ws://<addr>/profile while running`)
}

type runFlags struct {
	file          string
	out           string
	level         optimizer.Level
	cache         string
	profile       bool
	remoteProfile string
}

func parseFlags(args []string) runFlags {
	f := runFlags{level: optimizer.LevelFull}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-O0":
			f.level = optimizer.LevelNone
		case "-O1":
			f.level = optimizer.LevelBasic
		case "-O2":
			f.level = optimizer.LevelFull
		case "-o":
			if i+1 < len(args) {
				i++
				f.out = args[i]
			}
		case "-cache":
			if i+1 < len(args) {
				i++
				f.cache = args[i]
			}
		case "-profile":
			f.profile = true
		case "-remote-profile":
			if i+1 < len(args) {
				i++
				f.remoteProfile = args[i]
			}
		default:
			if f.file == "" {
				f.file = args[i]
			}
		}
	}
	return f
}

func openCache(dsn string) *packagestore.Store {
	if dsn == "" {
		return nil
	}
	parts := strings.SplitN(dsn, ":", 2)
	if len(parts) != 2 {
		log.Fatalf("sentrac: malformed -cache dsn %q, want dialect:connstring", dsn)
	}
	store, err := packagestore.Open(packagestore.Dialect(parts[0]), parts[1])
	if err != nil {
		log.Fatalf("sentrac: opening cache %q: %v", dsn, err)
	}
	return store
}

func compileSource(filename string, level optimizer.Level) *ir.Module {
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("sentrac: %v", err)
	}

	scanner := lexer.NewScannerFile(string(source), filename)
	tokens := scanner.ScanTokens()

	p := parser.NewParserFile(tokens, filename)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		for _, e := range p.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(1)
	}

	if err := loader.New(filename).Resolve(prog); err != nil {
		log.Fatalf("sentrac: %v", err)
	}

	prog, diags := analyzer.Analyze(prog)
	failed := false
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
		if d.Severity == errors.SeverityError {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	mod, err := ircompile.Compile(prog)
	if err != nil {
		log.Fatalf("sentrac: %v", err)
	}
	optimizer.OptimizeModule(mod, level)
	return mod
}

func loadModule(filename string) *ir.Module {
	f, err := os.Open(filename)
	if err != nil {
		log.Fatalf("sentrac: %v", err)
	}
	defer f.Close()
	mod, err := ir.ReadModule(f, filename)
	if err != nil {
		log.Fatalf("sentrac: loading %s: %v", filename, err)
	}
	return mod
}

func runCommand(args []string) {
	f := parseFlags(args)
	if f.file == "" {
		log.Fatal("sentrac run: no input file")
	}

	var mod *ir.Module
	if strings.HasSuffix(f.file, compiledExt) {
		mod = loadModule(f.file)
	} else {
		mod = compileSource(f.file, f.level)
	}

	eng := engine.New(mod)
	if store := openCache(f.cache); store != nil {
		defer store.Close()
		eng.SetDiskStore(store)
	}
	if f.remoteProfile != "" {
		sink, err := remoteprofile.Listen(f.remoteProfile)
		if err != nil {
			log.Fatalf("sentrac: -remote-profile: %v", err)
		}
		defer sink.Close()
		eng.SetProfileSink(sink)
	}

	start := time.Now()
	_, err := eng.Run()
	elapsed := time.Since(start)
	if err != nil {
		reportRuntimeError(err)
		os.Exit(1)
	}

	if f.profile {
		printProfile(eng, mod, elapsed)
	}
}

func buildCommand(args []string) {
	f := parseFlags(args)
	if f.file == "" {
		log.Fatal("sentrac build: no input file")
	}
	if f.out == "" {
		f.out = strings.TrimSuffix(f.file, ".sn") + compiledExt
	}

	mod := compileSource(f.file, f.level)

	out, err := os.Create(f.out)
	if err != nil {
		log.Fatalf("sentrac: %v", err)
	}
	defer out.Close()
	if err := ir.WriteModule(out, mod); err != nil {
		log.Fatalf("sentrac: writing %s: %v", f.out, err)
	}
	fmt.Printf("wrote %s\n", f.out)
}

func checkCommand(args []string) {
	if len(args) == 0 {
		log.Fatal("sentrac check: no input file")
	}
	filename := args[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("sentrac: %v", err)
	}

	scanner := lexer.NewScannerFile(string(source), filename)
	tokens := scanner.ScanTokens()
	p := parser.NewParserFile(tokens, filename)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		for _, e := range p.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(1)
	}

	_, diags := analyzer.Analyze(prog)
	errCount, warnCount := 0, 0
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
		switch d.Severity {
		case errors.SeverityError:
			errCount++
		case errors.SeverityWarning:
			warnCount++
		}
	}

	if errCount > 0 {
		fmt.Printf("%s: %d error(s), %d warning(s)\n", filename, errCount, warnCount)
		os.Exit(1)
	}
	fmt.Printf("%s: ok (%d warning(s))\n", filename, warnCount)
}

func reportRuntimeError(err error) {
	if se, ok := err.(*errors.SentraError); ok {
		fmt.Fprint(os.Stderr, se.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
}

// printProfile dumps the advisory per-function call/timing counters
// collected during the run, formatted with go-humanize the way a
// reporting command aimed at a human terminal would (raw nanosecond
// and call counts are unreadable at scale).
func printProfile(eng *engine.Engine, mod *ir.Module, wall time.Duration) {
	fmt.Printf("\nwall time: %s\n", wall)
	for _, fn := range mod.Functions {
		p := eng.Profile(fn)
		if p == nil {
			continue
		}
		fmt.Printf("  %-20s calls=%-8s total=%s\n",
			fn.Name,
			humanize.Comma(p.Calls),
			time.Duration(p.TotalElapsedNs))
	}
}
