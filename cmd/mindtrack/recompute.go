package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute-xp",
	Short: "Rebuild a user's XP and level from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		if userID <= 0 {
			return fmt.Errorf("--user is required")
		}
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		st, err := openStack(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := st.game.RecomputeXP(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if _, err := st.game.EvaluateAchievements(cmd.Context(), userID); err != nil {
			logger.Warn("achievement evaluation failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d: %d XP, level %d (%s)\n", userID, p.XP, p.Level, p.Rank.Title)
		return nil
	},
}

func init() {
	recomputeCmd.Flags().Int64("user", 0, "User ID")
}
