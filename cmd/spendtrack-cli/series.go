package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spendtrack/internal/render"
	"spendtrack/internal/services"
)

var flagOutput string

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Manage recurring expenses",
}

var seriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring series",
	Args:  cobra.NoArgs,
	RunE:  runSeriesList,
}

var seriesStopCmd = &cobra.Command{
	Use:   "stop ID",
	Short: "Stop a recurring series",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeriesStop,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export expenses to a PDF report",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	seriesCmd.AddCommand(seriesListCmd, seriesStopCmd)

	exportCmd.Flags().StringVar(&flagFrom, "from", "", "Start date YYYY-MM-DD")
	exportCmd.Flags().StringVar(&flagTo, "to", "", "End date YYYY-MM-DD")
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "expenses.pdf", "Output file")

	rootCmd.AddCommand(seriesCmd, exportCmd)
}

func runSeriesList(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}
	series, err := s.api.ListSeries(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Print(render.Series(series))
	return nil
}

func runSeriesStop(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}
	if err := s.api.StopSeries(cmd.Context(), args[0]); err != nil {
		return err
	}
	info(render.Success("Stopped series " + args[0]))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}
	pdf, err := s.api.ExportPDF(cmd.Context(), services.ExportRequest{StartDate: flagFrom, EndDate: flagTo})
	if err != nil {
		return err
	}
	if err := os.WriteFile(flagOutput, pdf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flagOutput, err)
	}
	info(render.Success(fmt.Sprintf("Wrote %s (%d bytes)", flagOutput, len(pdf))))
	return nil
}
