package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"spendtrack/internal/render"
	"spendtrack/internal/settings"
)

var flagGoal string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show monthly totals, goal progress and insights",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage the monthly spending goal",
}

var goalSetCmd = &cobra.Command{
	Use:   "set AMOUNT",
	Short: "Set the monthly goal (0 disables it)",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalSet,
}

var goalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the monthly goal",
	Args:  cobra.NoArgs,
	RunE:  runGoalShow,
}

func init() {
	summaryCmd.Flags().StringVar(&flagGoal, "goal", "", "Goal for this run (overrides the settings file)")
	goalCmd.AddCommand(goalSetCmd, goalShowCmd)
	rootCmd.AddCommand(summaryCmd, goalCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}

	goal := s.settings.MonthlyGoal()
	if flagGoal != "" {
		if goal, err = parseGoal(flagGoal); err != nil {
			return err
		}
	}

	view, err := s.api.Dashboard(cmd.Context(), goal)
	if err != nil {
		return err
	}
	fmt.Print(render.Dashboard(view))
	return nil
}

func runGoalSet(_ *cobra.Command, args []string) error {
	goal, err := parseGoal(args[0])
	if err != nil {
		return err
	}
	s, err := settings.Load()
	if err != nil {
		return err
	}
	if err := s.SetMonthlyGoal(goal); err != nil {
		return err
	}
	if err := settings.Save(s); err != nil {
		return err
	}
	if goal.IsZero() {
		info(render.Success("Monthly goal disabled"))
	} else {
		info(render.Success("Monthly goal set to " + render.Money(goal)))
	}
	return nil
}

func runGoalShow(_ *cobra.Command, _ []string) error {
	s, err := settings.Load()
	if err != nil {
		return err
	}
	goal := s.MonthlyGoal()
	if goal.IsZero() {
		fmt.Print(render.Muted("No monthly goal set."))
		return nil
	}
	fmt.Printf("  Monthly goal: %s\n", render.Money(goal))
	return nil
}

func parseGoal(s string) (decimal.Decimal, error) {
	goal, err := decimal.NewFromString(s)
	if err != nil || goal.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid goal %q: must be a non-negative number", s)
	}
	return goal, nil
}
