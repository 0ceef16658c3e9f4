package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"stocksearch/internal/app"
	"stocksearch/internal/search"
	"stocksearch/internal/stock"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search once and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	stocks, err := a.Search.Search(cmd.Context(), query)
	return printState(cmd.OutOrStdout(), search.FromResult(query, stocks, err))
}

func printState(w io.Writer, state search.State) error {
	switch s := state.(type) {
	case search.Loading:
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	case search.Empty:
		_, err := fmt.Fprintln(w, "No stocks found")
		return err
	case search.Error:
		_, err := fmt.Fprintln(w, "Error:", s.Message)
		return err
	case search.Success:
		return printStocks(w, s.Stocks)
	default:
		return fmt.Errorf("unknown state %T", state)
	}
}

func printStocks(w io.Writer, stocks []stock.Stock) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE")
	fmt.Fprintln(tw, strings.Repeat("-", 6)+"\t"+strings.Repeat("-", 4)+"\t"+strings.Repeat("-", 5))
	for _, s := range stocks {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\n", s.Symbol, s.Name, s.Price)
	}
	return tw.Flush()
}
