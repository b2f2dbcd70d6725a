package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/funvibe/funfuzz/internal/fuzzer"
	"github.com/funvibe/funfuzz/internal/modules"
	"github.com/funvibe/funfuzz/internal/oracle"
	"github.com/funvibe/funfuzz/internal/store"
	"github.com/funvibe/funfuzz/internal/suite"
)

const usage = `funfuzz - property/fuzz testing for registered functions

Usage:
  funfuzz run -c <suite.yaml> [--db <archive.db>] [--seed <seed>]
  funfuzz targets
  funfuzz list --db <archive.db>

Commands:
  run       execute every target of a campaign file
  targets   print the registered modules and functions
  list      print archived runs from a SQLite archive
`

// color wraps s in an ANSI color code when stdout is a terminal.
func color(code, s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func categoryColor(cat oracle.Category) string {
	switch cat {
	case oracle.OK:
		return "32" // green
	case oracle.FAILURE:
		return "35" // magenta
	default:
		return "31" // red
	}
}

func main() {
	flags := flag.NewFlagSet("funfuzz", flag.ExitOnError)
	suitePath := flags.StringP("suite", "c", "", "campaign file to run")
	dbPath := flags.String("db", "", "SQLite archive for finished runs")
	seed := flags.String("seed", "", "override every target's seed")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd = args[0]
		args = args[1:]
	}
	if err := flags.Parse(args); err != nil {
		os.Exit(2)
	}

	reg := modules.NewRegistry()
	registerDemo(reg)

	var err error
	switch cmd {
	case "run":
		err = runCampaign(reg, *suitePath, *dbPath, *seed)
	case "targets":
		err = printTargets(reg)
	case "list":
		err = listRuns(*dbPath)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "funfuzz: %v\n", err)
		os.Exit(1)
	}
}

func runCampaign(reg *modules.Registry, suitePath, dbPath, seed string) error {
	if suitePath == "" {
		return fmt.Errorf("run requires a campaign file (-c)")
	}
	s, err := suite.Load(suitePath)
	if err != nil {
		return err
	}

	var archive *store.Store
	if dbPath != "" {
		archive, err = store.Open(dbPath)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	ctx := context.Background()
	failedTargets := 0
	for i := range s.Targets {
		t := &s.Targets[i]
		opts := t.Options()
		if seed != "" {
			opts.Seed = seed
		}

		env, err := fuzzer.Setup(opts, reg, t.Module, t.Function)
		if err != nil {
			return err
		}
		res, err := fuzzer.Fuzz(ctx, env, nil)
		if res == nil {
			return err
		}
		if err != nil {
			// Persistence problems don't invalidate the computed results.
			fmt.Fprintf(os.Stderr, "funfuzz: %s.%s: %v\n", t.Module, t.Function, err)
		}

		printSummary(res)
		if res.FailureCount() > 0 {
			failedTargets++
		}
		if archive != nil {
			if err := archive.SaveRun(res); err != nil {
				fmt.Fprintf(os.Stderr, "funfuzz: %v\n", err)
			}
		}
	}

	if failedTargets > 0 {
		return fmt.Errorf("%d target(s) had failing tests", failedTargets)
	}
	return nil
}

func printSummary(res *fuzzer.Results) {
	counts := make(map[oracle.Category]int)
	for i := range res.Results {
		counts[res.Results[i].Category]++
	}

	fmt.Printf("%s.%s  seed=%q  stop=%s  generated=%d  dupes=%d  saved=%d  (%s)\n",
		res.Module, res.Function, res.Seed, res.StopReason,
		res.InputsGenerated, res.DupesGenerated, res.InputsSaved,
		res.Elapsed.Round(time.Millisecond))

	for _, cat := range []oracle.Category{
		oracle.OK, oracle.BAD_VALUE, oracle.EXCEPTION,
		oracle.TIMEOUT, oracle.DISAGREE, oracle.FAILURE,
	} {
		if n := counts[cat]; n > 0 {
			fmt.Printf("  %-10s %d\n", color(categoryColor(cat), string(cat)), n)
		}
	}

	// Show the first few failing inputs so a run is actionable without
	// opening the JSON export.
	shown := 0
	for i := range res.Results {
		tr := &res.Results[i]
		if tr.Category == oracle.OK || shown >= 5 {
			continue
		}
		line := fmt.Sprintf("  [%s]", tr.Category)
		for _, el := range tr.Input {
			line += fmt.Sprintf(" %s=%s", el.Name, el.Value.Inspect())
		}
		if tr.ExceptionMessage != "" {
			line += "  // " + tr.ExceptionMessage
		}
		fmt.Println(color(categoryColor(tr.Category), line))
		shown++
	}
}

func printTargets(reg *modules.Registry) error {
	for _, name := range demoModules {
		m, err := reg.Module(name)
		if err != nil {
			return err
		}
		fmt.Println(m.Name)
		for _, fn := range m.Functions() {
			fmt.Printf("  %s\n", fn)
		}
	}
	return nil
}

func listRuns(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("list requires an archive (--db)")
	}
	archive, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	runs, err := archive.ListRuns()
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %s.%s  stop=%s  generated=%d  saved=%d  %s\n",
			r.ID, r.Module, r.Function, r.StopReason,
			r.InputsGenerated, r.InputsSaved, r.CreatedAt)
	}
	return nil
}
