// Command journal inspects the node's delivery journal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"cloudpico-node/internal/journal"
)

const usage = `usage: %s <command>
  migrate       apply pending journal migrations
  recent [n]    print the n most recent attempts (default 20)
  summary       count attempts by final state
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	path := os.Getenv("JOURNAL_PATH")
	if path == "" {
		path = "journal.db"
	}
	path = filepath.Clean(path)

	ctx := context.Background()
	j, err := journal.Open(ctx, path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal open: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("journal close", "err", closeErr)
		}
	}()

	if err := run(ctx, j, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, j *journal.Journal, args []string, out io.Writer) error {
	switch args[0] {
	case "migrate":
		// Open already migrated.
		fmt.Fprintln(out, "migrations applied")
		return nil
	case "recent":
		n := 20
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid count %q", args[1])
			}
			n = v
		}
		entries, err := j.Recent(ctx, n)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTAKEN\tSTATE\tT(°C)\tRH(%)\tP(hPa)\tELAPSED\tERROR")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
				e.ID, e.TakenAt.Local().Format(time.DateTime), e.State,
				e.Temperature, e.Humidity, e.Pressure, e.Elapsed, e.Err)
		}
		return tw.Flush()
	case "summary":
		sum, err := j.Summary(ctx)
		if err != nil {
			return err
		}
		states := make([]string, 0, len(sum))
		for s := range sum {
			states = append(states, s)
		}
		sort.Strings(states)
		for _, s := range states {
			fmt.Fprintf(out, "%-16s %d\n", s, sum[s])
		}
		return nil
	default:
		return fmt.Errorf("unknown command")
	}
}
