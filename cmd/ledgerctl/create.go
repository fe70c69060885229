package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger/internal/client"
	"ledger/internal/core"
)

type createOptions struct {
	id          string
	amount      int64
	amountMajor string
	category    string
	description string
	date        string
}

func newCreateCmd(v *viper.Viper) *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an expense",
		Long: "Record an expense. Without --id a random id is generated; pass the same\n" +
			"--id again to retry safely, the server returns the stored record.",
		Example: "  ledgerctl create --amount-major 12.50 --category Food --description lunch",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(v)

			req, err := opts.request(time.Now())
			if err != nil {
				return err
			}

			c, err := newClient(v, logger)
			if err != nil {
				return err
			}

			logger.Debug("creating expense", "id", req.ID, "amount", req.Amount)
			e, created, err := c.CreateExpense(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !created {
				logger.Info("expense already recorded", "id", e.ID)
			}
			printExpense(cmd.OutOrStdout(), e)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "Idempotency key (default: random UUID)")
	f.Int64Var(&opts.amount, "amount", 0, "Amount in minor units (cents)")
	f.StringVar(&opts.amountMajor, "amount-major", "", "Amount in major units, e.g. 12.50")
	f.StringVar(&opts.category, "category", "", "Category")
	f.StringVar(&opts.description, "description", "", "Description")
	f.StringVar(&opts.date, "date", "", "Date as YYYY-MM-DD (default: today)")
	cmd.MarkFlagsMutuallyExclusive("amount", "amount-major")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// request builds the payload. Server-side validation still applies; the
// checks here only catch what the flags themselves make ambiguous.
func (o createOptions) request(now time.Time) (client.NewExpense, error) {
	amount := o.amount
	if o.amountMajor != "" {
		minor, err := parseMajorUnits(o.amountMajor)
		if err != nil {
			return client.NewExpense{}, err
		}
		amount = minor
	}
	if amount == 0 {
		return client.NewExpense{}, errors.New("one of --amount or --amount-major is required")
	}

	id := o.id
	if id == "" {
		id = uuid.NewString()
	}
	date := o.date
	if date == "" {
		date = now.Format(core.DateLayout)
	}

	return client.NewExpense{
		ID:          id,
		Amount:      amount,
		Category:    o.category,
		Description: o.description,
		Date:        date,
	}, nil
}

// parseMajorUnits converts "12.50" to 1250. More than two decimal places
// is rejected rather than rounded.
func parseMajorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
	}
	return minor.IntPart(), nil
}

// formatMinorUnits renders 1250 as "12.50".
func formatMinorUnits(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}

func printExpense(w io.Writer, e client.Expense) {
	fmt.Fprintf(w, "%s  %s  %s  %s", e.ID, e.Date, e.Category, formatMinorUnits(e.Amount))
	if e.Description != "" {
		fmt.Fprintf(w, "  %s", e.Description)
	}
	fmt.Fprintln(w)
}
