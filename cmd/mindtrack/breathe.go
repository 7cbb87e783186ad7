package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mindtrack/internal/exercise"
)

var breatheCmd = &cobra.Command{
	Use:   "breathe",
	Short: "Run a guided exercise in the terminal and record it",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		id, _ := cmd.Flags().GetString("exercise")
		ex, ok := exercise.Find(id)
		if !ok {
			return fmt.Errorf("unknown exercise %q", id)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s). Ctrl-C to stop.\n", ex.Name, ex.Duration())
		elapsed, err := guide(ctx, out, ex, time.Second)
		if err != nil {
			return err
		}
		if elapsed < ex.Duration() {
			fmt.Fprintf(out, "stopped after %s, not recorded\n", elapsed.Round(time.Second))
			return nil
		}
		if userID <= 0 {
			fmt.Fprintln(out, "done")
			return nil
		}

		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		st, err := openStack(context.WithoutCancel(ctx), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := st.activity.CompleteExercise(context.WithoutCancel(ctx), userID, ex.ID, ex.Seconds)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "recorded; +%d XP today from %s\n", xpOf(res.Task.Awarded, res.Task.Task.XP), res.Task.Task.ID)
		for _, a := range res.Unlocked {
			fmt.Fprintf(out, "achievement unlocked: %s (+%d XP)\n", a.Label, a.XPReward)
		}
		return nil
	},
}

func init() {
	breatheCmd.Flags().Int64("user", 0, "User ID to record the completion for")
	breatheCmd.Flags().String("exercise", "box_breathing", "Exercise ID")
}

func xpOf(awarded bool, xp int) int {
	if awarded {
		return xp
	}
	return 0
}

// guide runs a timer over ex, printing each phase change, and returns the
// time counted when the timer finished or ctx ended.
func guide(ctx context.Context, out io.Writer, ex exercise.Exercise, tick time.Duration) (time.Duration, error) {
	phases := make(chan exercise.Phase, 1)
	var last string
	timer := exercise.NewTimer(ex.Duration(), tick, func(elapsed time.Duration) {
		if p, _, ok := ex.PhaseAt(elapsed); ok && p.Name != last {
			last = p.Name
			select {
			case phases <- p:
			default:
			}
		}
	})
	if p, _, ok := ex.PhaseAt(0); ok {
		last = p.Name
		fmt.Fprintf(out, "%-8s %s\n", p.Name, p.Instruction)
	}
	if err := timer.Start(ctx); err != nil {
		return 0, err
	}

	for {
		select {
		case p := <-phases:
			fmt.Fprintf(out, "%-8s %s\n", p.Name, p.Instruction)
		case <-timer.Done():
			return timer.Elapsed(), nil
		}
	}
}
