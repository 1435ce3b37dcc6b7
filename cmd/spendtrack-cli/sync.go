package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendtrack/internal/outbox"
	"spendtrack/internal/render"
)

var flagPurgeDead bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send expenses queued while offline",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&flagPurgeDead, "purge-rejected", false, "Drop queued expenses the server refused")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}

	q, err := outbox.Open(s.settings.OutboxPath(), s.api)
	if err != nil {
		return err
	}
	defer q.Close()

	report, syncErr := q.DrainAndSync(cmd.Context())
	fmt.Print(render.SyncReport(report, syncErr))

	dead, err := q.Dead(cmd.Context())
	if err != nil {
		return err
	}
	if len(dead) > 0 {
		t := render.Table{Title: "Rejected", Headers: []string{"#", "Title", "Amount", "Reason"}}
		for _, e := range dead {
			amount := ""
			if e.Input.Amount != nil {
				amount = render.Money(*e.Input.Amount)
			}
			t.Rows = append(t.Rows, []string{fmt.Sprint(e.ID), e.Input.Title, amount, e.LastError})
		}
		fmt.Print(render.RenderTable(t))
		if flagPurgeDead {
			n, err := q.PurgeDead(cmd.Context())
			if err != nil {
				return err
			}
			info(render.Success(fmt.Sprintf("Dropped %d rejected expenses", n)))
		}
	}
	return syncErr
}
