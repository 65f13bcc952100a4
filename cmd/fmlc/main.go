// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

// fmlc is a luac-style driver for the fml compiler: it compiles one
// or more Lua chunks, optionally lists the resulting bytecode, writes
// dumped code objects, or runs the compiled chunk through the
// embedded interpreter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"

	"github.com/fml-lang/fml"
	"github.com/fml-lang/fml/internal/code"
	"github.com/fml-lang/fml/internal/interp"
)

type options struct {
	inputFilenames []string
	outputFilename string
	list           int
	parseOnly      bool
	run            bool
	jobs           jobsFlag
}

func main() {
	c := &cobra.Command{
		Use:                   "fmlc [options] FILE [...]",
		Short:                 "fml compiler",
		Args:                  cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(options)
	c.Flags().CountVarP(&opts.list, "list", "l", "produce a listing of compiled bytecode (repeat for constants and pools)")
	c.Flags().StringVarP(&opts.outputFilename, "output", "o", "", "dump compiled bytecode to `filename`")
	c.Flags().BoolVarP(&opts.parseOnly, "parse-only", "p", false, "compile without writing or running bytecode")
	c.Flags().BoolVar(&opts.run, "run", false, "execute each compiled chunk and print its results")
	opts.jobs = jobsFlag(runtime.GOMAXPROCS(0))
	c.Flags().VarP(&opts.jobs, "jobs", "j", "compile up to `n` files concurrently")
	showDebug := c.PersistentFlags().Bool("debug", false, "show debugging output")
	c.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogging(*showDebug)
		return nil
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.inputFilenames = args
		return run(cmd.Context(), opts)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := c.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(*showDebug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	// Each file gets its own parser, scope resolver, and assembler
	// instances, so compilations are independent and can fan out.
	protos := make([]*code.Object, len(opts.inputFilenames))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(int(opts.jobs))
	for i, filename := range opts.inputFilenames {
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				return err
			}
			source, err := os.ReadFile(filename)
			if err != nil {
				return err
			}
			log.Debugf(grpCtx, "compiling %s (%d bytes)", filename, len(source))
			protos[i], err = fml.Compile(source, filename)
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	if opts.list > 0 {
		for _, proto := range protos {
			printFunction(os.Stdout, proto, opts.list > 1)
		}
	}
	if opts.parseOnly {
		return nil
	}

	if opts.outputFilename != "" {
		if len(protos) != 1 {
			return fmt.Errorf("-o requires exactly one input file")
		}
		if err := os.WriteFile(opts.outputFilename, code.Dump(protos[0]), 0o666); err != nil {
			return err
		}
	}

	if opts.run {
		for i, proto := range protos {
			st := fml.NewState()
			st.OpenLibs()
			results, err := st.Exec(proto)
			if err != nil {
				return fmt.Errorf("%s: %w", opts.inputFilenames[i], err)
			}
			printResults(results)
		}
	}
	return nil
}

func printResults(results []interp.Value) {
	for i, v := range results {
		if i > 0 {
			fmt.Print("\t")
		}
		fmt.Print(v.String())
	}
	if len(results) > 0 {
		fmt.Println()
	}
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "fmlc: ", log.StdFlags, nil),
		})
	})
}
