// Command discount-run evaluates one function-run input document read from stdin and
// writes the result document to stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-discount/internal/config"
	"github.com/noah-isme/backend-discount/internal/discount"
	"github.com/noah-isme/backend-discount/internal/function"
	"github.com/noah-isme/backend-discount/internal/obs"
)

func main() {
	engine := flag.String("engine", "tiered", "engine to run: fixed or tiered")
	ruleFile := flag.String("rule", "", "YAML fixed rule file (fixed engine only)")
	logLevel := flag.String("log-level", "warn", "log level written to stderr")
	flag.Parse()

	logger := obs.NewLoggerTo(os.Stderr, "console", *logLevel)
	if err := run(*engine, *ruleFile, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Str("engine", *engine).Msg("discount run failed")
		os.Exit(1)
	}
}

func run(engine, ruleFile string, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	input, err := function.DecodeInput(bufio.NewReader(in))
	if err != nil {
		return err
	}

	var (
		result function.Result
		ev     discount.Evaluation
	)
	switch engine {
	case "fixed":
		rule := discount.DefaultFixedRule()
		if ruleFile != "" {
			if rule, err = config.LoadFixedRuleFile(ruleFile); err != nil {
				return err
			}
		}
		fixed, err := discount.NewFixedEngine(rule)
		if err != nil {
			return err
		}
		result, ev = function.RunFixed(fixed, input)
	case "tiered":
		result, ev, err = function.RunTiered(input)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown engine %q", engine)
	}

	logger.Debug().
		Str("engine", engine).
		Str("stage", string(ev.Stage)).
		Float64("subtotal", ev.Subtotal).
		Int("discounts", len(result.Discounts)).
		Msg("discount evaluated")
	return result.Write(out)
}
