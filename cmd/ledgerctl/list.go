package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledger/internal/client"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	var (
		q    client.ListQuery
		dump bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List expenses",
		Example: "  ledgerctl list --year 2024 --month 2 --sort date_asc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(v)
			c, err := newClient(v, logger)
			if err != nil {
				return err
			}

			expenses, err := c.ListExpenses(cmd.Context(), q)
			if err != nil {
				return err
			}
			logger.Debug("listed expenses", "count", len(expenses))

			if dump {
				printer := pp.New()
				printer.SetOutput(cmd.OutOrStdout())
				printer.SetColoringEnabled(false)
				_, err := printer.Println(expenses)
				return err
			}
			return printTable(cmd.OutOrStdout(), expenses)
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.Category, "category", "", `Category, "All" for every category`)
	f.StringVar(&q.SpecificDate, "date", "", "Single day YYYY-MM-DD; overrides --year and --month")
	f.IntVar(&q.Year, "year", 0, "Year")
	f.IntVar(&q.Month, "month", 0, "Month 1-12, needs --year")
	f.StringVar(&q.Sort, "sort", "", "date_asc, date_desc or empty for newest first")
	f.BoolVar(&dump, "dump", false, "Pretty-print decoded records")

	return cmd
}

func printTable(w io.Writer, expenses []client.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID\t")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			e.Date, e.Category, formatMinorUnits(e.Amount), e.Description, e.ID)
	}
	fmt.Fprintf(tw, "\t\t%s\t\t\t\n", formatMinorUnits(client.Total(expenses)))
	return tw.Flush()
}
