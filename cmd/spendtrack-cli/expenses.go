package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"spendtrack/internal/client"
	"spendtrack/internal/core"
	"spendtrack/internal/outbox"
	"spendtrack/internal/render"
)

var (
	flagAmount     string
	flagCategory   string
	flagDate       string
	flagNote       string
	flagPayment    string
	flagRecurrence string

	flagFrom  string
	flagTo    string
	flagMonth string
)

var addCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Record an expense (queued offline when the API is unreachable)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List expenses, newest first",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func init() {
	addCmd.Flags().StringVarP(&flagAmount, "amount", "a", "", "Amount, e.g. 12.50 (required)")
	addCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Category (default General)")
	addCmd.Flags().StringVarP(&flagDate, "date", "d", "", "Date as YYYY-MM-DD (default today)")
	addCmd.Flags().StringVar(&flagNote, "note", "", "Free-form note")
	addCmd.Flags().StringVar(&flagPayment, "payment", "", "Payment method (default Cash)")
	addCmd.Flags().StringVar(&flagRecurrence, "repeat", "", "Repeat daily, weekly, monthly or yearly")
	_ = addCmd.MarkFlagRequired("amount")

	listCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Only this category")
	listCmd.Flags().StringVar(&flagFrom, "from", "", "Start date YYYY-MM-DD")
	listCmd.Flags().StringVar(&flagTo, "to", "", "End date YYYY-MM-DD")
	listCmd.Flags().StringVarP(&flagMonth, "month", "m", "", "Calendar month YYYY-MM (overrides --from/--to)")

	rootCmd.AddCommand(addCmd, listCmd, rmCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	in, err := expenseInputFromFlags(strings.Join(args, " "))
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}

	rec, err := s.api.CreateExpense(cmd.Context(), in)
	var apiErr *client.APIError
	switch {
	case err == nil:
		info(render.Success(fmt.Sprintf("Added %s %s on %s (%s)", rec.Title, render.Money(rec.Amount.Decimal()), rec.Date, rec.ID)))
		return nil
	case errors.As(err, &apiErr):
		return err
	}

	// Unreachable API: keep the expense locally until the next sync.
	q, qerr := outbox.Open(s.settings.OutboxPath(), s.api)
	if qerr != nil {
		return fmt.Errorf("%w (and queueing failed: %v)", err, qerr)
	}
	defer q.Close()
	id, qerr := q.Enqueue(cmd.Context(), in)
	if qerr != nil {
		return fmt.Errorf("%w (and queueing failed: %v)", err, qerr)
	}
	info(render.Warning(fmt.Sprintf("API unreachable, queued as #%d. Run %q when back online.", id, "spendtrack-cli sync")))
	return nil
}

func expenseInputFromFlags(title string) (core.ExpenseInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(flagAmount))
	if err != nil {
		return core.ExpenseInput{}, fmt.Errorf("invalid amount %q", flagAmount)
	}
	in := core.ExpenseInput{
		Title:         strings.TrimSpace(title),
		Amount:        &amount,
		Category:      flagCategory,
		Date:          flagDate,
		Note:          flagNote,
		PaymentMethod: flagPayment,
	}
	if flagRecurrence != "" {
		in.IsRecurring = true
		in.RecurrenceType = flagRecurrence
	}
	if in.Date == "" {
		// Pin the date now so a queued expense keeps the day it was spent.
		in.Date = core.Today(time.Now()).String()
	}
	// Validate locally so bad input is never queued.
	if _, err := in.Normalize(core.Today(time.Now())); err != nil {
		return core.ExpenseInput{}, err
	}
	return in, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	f, err := filterFromFlags()
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}
	recs, err := s.api.ListExpenses(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Print(render.Expenses(recs))
	return nil
}

func filterFromFlags() (core.ExpenseFilter, error) {
	f := core.ExpenseFilter{Category: flagCategory}
	if flagMonth != "" {
		t, err := time.Parse(core.MonthKeyLayout, flagMonth)
		if err != nil {
			return f, fmt.Errorf("invalid month %q: use YYYY-MM", flagMonth)
		}
		f.From = core.DateOf(now.With(t).BeginningOfMonth())
		f.To = core.DateOf(now.With(t).EndOfMonth())
		return f, nil
	}
	var err error
	if flagFrom != "" {
		if f.From, err = core.ParseDate(flagFrom); err != nil {
			return f, err
		}
	}
	if flagTo != "" {
		if f.To, err = core.ParseDate(flagTo); err != nil {
			return f, err
		}
	}
	return f, nil
}

func runRm(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.requireLogin(); err != nil {
		return err
	}
	if err := s.api.DeleteExpense(cmd.Context(), args[0]); err != nil {
		return err
	}
	info(render.Success("Deleted " + args[0]))
	return nil
}
