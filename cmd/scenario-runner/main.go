// Package main - scenario-runner
// Runs the headless scenario suite and the determinism checks against a
// fresh engine. Exits non-zero when anything fails, so CI can gate on it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/scenario"
)

func main() {
	seed := flag.Uint64("seed", 1, "Base RNG seed for every scenario")
	only := flag.String("run", "", "Run only the scenario with this name")
	asJSON := flag.Bool("json", false, "Print results as JSON instead of a summary")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := engine.DefaultConfig()
	cfg.Seed = *seed

	var log *logger.Logger
	if !*asJSON {
		log = logger.NewLogger()
	}
	runner := scenario.NewRunner(cfg, log)

	suite := scenario.Builtin()
	if *only != "" {
		suite = filter(suite, *only)
		if len(suite) == 0 {
			fmt.Fprintf(os.Stderr, "no scenario named %q\n", *only)
			os.Exit(2)
		}
	}

	results := runner.RunAll(ctx, suite)

	determinism := make(map[string]string, len(suite))
	for _, sc := range suite {
		ok, reason := runner.Deterministic(ctx, sc)
		if !ok {
			determinism[sc.Name] = reason
		}
	}

	failed := len(determinism)
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}

	if *asJSON {
		out, _ := json.MarshalIndent(map[string]interface{}{
			"results":     results,
			"determinism": determinism,
			"failed":      failed,
		}, "", "  ")
		fmt.Println(string(out))
	} else {
		printSummary(results, determinism)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func filter(suite []scenario.Scenario, name string) []scenario.Scenario {
	for _, sc := range suite {
		if sc.Name == name {
			return []scenario.Scenario{sc}
		}
	}
	return nil
}

func printSummary(results []scenario.Result, determinism map[string]string) {
	line := strings.Repeat("=", 60)

	fmt.Println("\n📚 BACKLOG BREAKDOWN - SCENARIO SUITE")
	fmt.Println(line)
	passed := 0
	for _, r := range results {
		mark := "✅"
		if r.Passed {
			passed++
		} else {
			mark = "❌"
		}
		fmt.Printf("%s %-16s state=%-8s day=%-3d consumed=%-4d stress=%6.1f sim=%v\n",
			mark, r.Name, r.FinalState, r.Day, r.Consumed, r.FinalStress, r.SimTime)
		if r.Reason != "" {
			fmt.Printf("   ↳ %s\n", r.Reason)
		}
	}

	fmt.Println(line)
	fmt.Printf("   ✅ Passed: %d\n", passed)
	fmt.Printf("   ❌ Failed: %d\n", len(results)-passed)

	if len(determinism) == 0 {
		fmt.Println("   🔁 Replays are deterministic")
		return
	}
	for name, reason := range determinism {
		fmt.Printf("   🔀 %s diverged: %s\n", name, reason)
	}
}
