package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"stocksearch/internal/search"
	"stocksearch/internal/stock"
	"stocksearch/pkg/stockws"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Search interactively against a running server",
	Long: `Connects to the server's /ws endpoint and sends every line read from stdin
as a query. A line reading "!retry" runs the last query again.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws", "search server WebSocket URL")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	client := stockws.NewClient(watchURL, log)
	client.SetMessageHandler(func(m stockws.ServerMessage) {
		if m.Type == stockws.TypeConnectivity {
			if m.Online != nil && !*m.Online {
				fmt.Fprintln(out, "[offline]")
			}
			return
		}
		if err := printState(out, toState(m)); err != nil {
			log.Warn("print state", zap.Error(err))
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	go readQueries(ctx, cmd.InOrStdin(), client, stop)

	if err := client.Listen(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func readQueries(ctx context.Context, in io.Reader, client *stockws.Client, stop context.CancelFunc) {
	defer stop()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		var err error
		if line == "!retry" {
			err = client.SendRetry()
		} else {
			err = client.SendQuery(line)
		}
		if err != nil {
			log.Warn("send failed", zap.Error(err))
		}
	}
}

func toState(m stockws.ServerMessage) search.State {
	switch m.Type {
	case stockws.TypeLoading:
		return search.Loading{}
	case stockws.TypeEmpty:
		return search.Empty{}
	case stockws.TypeError:
		return search.Error{Message: m.Message}
	case stockws.TypeSuccess:
		stocks := make([]stock.Stock, 0, len(m.Stocks))
		for _, s := range m.Stocks {
			stocks = append(stocks, stock.Stock{Symbol: s.Symbol, Name: s.Name, Price: s.Price, CachedAt: s.CachedAt})
		}
		return search.Success{Stocks: stocks, Query: m.Query}
	default:
		return search.Error{Message: stock.GenericMessage}
	}
}
