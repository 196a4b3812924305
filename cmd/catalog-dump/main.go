// Command catalog-dump snapshots the remote catalog to a local file that
// cartd can serve with CART_CATALOG_FILE.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/shopcart/internal/catalog"
)

func main() {
	var (
		url string
		out string
	)

	flag.StringVar(&url, "url", catalog.DefaultURL, "catalog endpoint")
	flag.StringVar(&out, "out", "catalog.json.gz", "output file, gzip compressed when it ends with .gz")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, url, out); err != nil {
		slog.Error("dump failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("dump completed successfully", slog.String("path", out))
}

func run(ctx context.Context, url, out string) error {
	slog.Info("fetching catalog", slog.String("url", url))

	products, err := catalog.NewHTTPSource(url).Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch catalog")
	}

	slog.Info("writing catalog", slog.Int("count", len(products)))

	if err := catalog.WriteFile(out, products); err != nil {
		return errors.Wrap(err, "write catalog")
	}
	return nil
}
