package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toolkits/pkg/logger"
	"golang.org/x/sync/errgroup"

	"github.com/rawbytedev/sso"
	"github.com/rawbytedev/sso/pkg/alloc"
)

var errLeaked = errors.New("buffers still live after the run")

type benchResult struct {
	Ops     int
	Elapsed time.Duration
	Stats   alloc.Stats
	Leaked  int
}

func newBenchCmd(st *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run parallel string workloads under a tracking allocator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := st.cfg.Bench
			flags := cmd.Flags()
			var err error
			if flags.Changed("workers") {
				if opts.Workers, err = flags.GetInt("workers"); err != nil {
					return err
				}
			}
			if flags.Changed("iterations") {
				if opts.Iterations, err = flags.GetInt("iterations"); err != nil {
					return err
				}
			}
			if flags.Changed("size") {
				if opts.Size, err = flags.GetInt("size"); err != nil {
					return err
				}
			}
			if opts.Workers < 1 {
				return fmt.Errorf("workers must be positive, got %d", opts.Workers)
			}
			profile, err := flags.GetString("memprofile")
			if err != nil {
				return err
			}
			if profile != "" {
				runtime.MemProfileRate = 1
			}
			res, err := runBench(cmd.Context(), opts)
			if err != nil && !errors.Is(err, errLeaked) {
				return err
			}
			if profile != "" {
				if err := writeHeapProfile(profile); err != nil {
					return err
				}
			}
			printBench(cmd.OutOrStdout(), opts, res)
			return err
		},
	}
	cmd.Flags().Int("workers", 0, "parallel workers (overrides [bench] workers)")
	cmd.Flags().Int("iterations", 0, "iterations per worker (overrides [bench] iterations)")
	cmd.Flags().Int("size", 0, "bytes pushed per iteration (overrides [bench] size)")
	cmd.Flags().String("memprofile", "", "write a heap profile to this file")
	return cmd
}

// runBench installs a tracking allocator for the duration of the run and
// restores the previous one afterwards.
//
// A buffer is released through whichever allocator is installed at release
// time, so no Long string may be alive across the call. One created before
// the run and freed during it would reach the tracker, which rejects it. One
// still held by the tracker when the run ends would later be released through
// the previous allocator; runBench reports those as leaked and fails with
// errLeaked.
func runBench(ctx context.Context, opts BenchSection) (benchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tracker := alloc.NewTracking(nil)
	prev := sso.SetAllocator(tracker)
	defer sso.SetAllocator(prev)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			return benchWorkload(gctx, w, opts)
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}
	res := benchResult{
		Ops:     opts.Workers * opts.Iterations,
		Elapsed: time.Since(start),
		Stats:   tracker.Stats(),
	}
	if res.Leaked = tracker.Report(); res.Leaked > 0 {
		return res, fmt.Errorf("%d %w", res.Leaked, errLeaked)
	}
	return res, nil
}

var benchWorkload = workload

// workload grows one string past the inline limit, edits it, then shrinks
// it back, checking its content along the way.
func workload(ctx context.Context, id int, opts BenchSection) error {
	chunk := strings.Repeat(string(rune('a'+id%26)), max(opts.Size, 1))
	var s sso.String
	defer s.Free()
	for i := 0; i < opts.Iterations; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s.PushStr(chunk)
		s.Insert(0, 'é')
		if r := s.Remove(0); r != 'é' {
			return fmt.Errorf("worker %d: removed %q, want %q", id, r, 'é')
		}
		clone := s.Clone()
		if !clone.Equal(&s) {
			clone.Free()
			return fmt.Errorf("worker %d: clone differs at iteration %d", id, i)
		}
		clone.Free()
		if s.Len() > 4*len(chunk) {
			s.Truncate(len(chunk) / 2)
			s.ShrinkToFit()
		}
	}
	logger.Debugf("bench: worker %d done, len=%d cap=%d", id, s.Len(), s.Cap())
	return nil
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return err
	}
	logger.Infof("bench: heap profile written to %s", path)
	return nil
}

func printBench(w io.Writer, opts BenchSection, res benchResult) {
	perOp := time.Duration(0)
	if res.Ops > 0 {
		perOp = res.Elapsed / time.Duration(res.Ops)
	}
	fmt.Fprintf(w, "%s workers=%d iterations=%d size=%d\n", toolColor.Sprint("bench"), opts.Workers, opts.Iterations, opts.Size)
	fmt.Fprintf(w, "  elapsed   %v (%v/op)\n", res.Elapsed, perOp)
	fmt.Fprintf(w, "  allocs    %d\n", res.Stats.Allocs)
	fmt.Fprintf(w, "  grows     %d\n", res.Stats.Grows)
	fmt.Fprintf(w, "  frees     %d\n", res.Stats.Frees)
	fmt.Fprintf(w, "  peak      %d bytes\n", res.Stats.PeakBytes)
	leaked := shortColor.Sprint(res.Leaked)
	if res.Leaked > 0 {
		leaked = errorColor.Sprint(res.Leaked)
	}
	fmt.Fprintf(w, "  leaked    %s\n", leaked)
}
