// stockctl loads and inspects the stock pool.
//
//	stockctl import -group ID1 -file akun.csv   baris pertama CSV = label
//	stockctl add -group ID1 email=a@b.c password=rahasia
//	stockctl count [-group ID1]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/app"
	"github.com/ariefcatur/go-digital-shop/internal/config"
	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/logging"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "stockctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stockctl import|add|count [flags]")
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreBackend == config.BackendMemory && cfg.PoolBackend != config.BackendRedis {
		return errors.New("memory store is per-process; use postgres, sqlite or POOL_BACKEND=redis")
	}
	logger := logging.MustNewLogger(cfg.ServiceName+"-stockctl", cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	stores, err := app.OpenStores(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer stores.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "import":
		return importCSV(ctx, stores.Pool, rest, logger)
	case "add":
		return addOne(ctx, stores.Pool, rest, logger)
	case "count":
		return count(ctx, cfg, stores.Pool, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func importCSV(ctx context.Context, pool inventory.Pool, args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	group := fs.String("group", "", "product group id")
	file := fs.String("file", "", "CSV file, header row = field labels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *group == "" || *file == "" {
		return errors.New("import needs -group and -file")
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	payloads, err := readPayloads(f)
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return errors.New("no data rows")
	}

	n := 0
	if ba, ok := pool.(inventory.BatchAdder); ok {
		if n, err = ba.AddBatch(ctx, *group, payloads); err != nil {
			return err
		}
	} else {
		for _, p := range payloads {
			if _, err := pool.Add(ctx, *group, p); err != nil {
				return fmt.Errorf("after %d rows: %w", n, err)
			}
			n++
		}
	}
	log.Info("stock_imported", zap.String("group", *group), zap.Int("rows", n))
	fmt.Printf("imported %d units into %s\n", n, *group)
	return nil
}

// readPayloads: baris kosong dilewati.
func readPayloads(r io.Reader) ([]inventory.Payload, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var out []inventory.Payload
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		p := inventory.PayloadFromRow(header, row)
		if len(p.NonEmpty()) == 0 {
			continue
		}
		out = append(out, p)
	}
}

func addOne(ctx context.Context, pool inventory.Pool, args []string, log *zap.Logger) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	group := fs.String("group", "", "product group id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *group == "" || fs.NArg() == 0 {
		return errors.New("add needs -group and at least one label=value")
	}
	var p inventory.Payload
	for _, kv := range fs.Args() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("bad field %q, want label=value", kv)
		}
		p = append(p, inventory.Field{Label: strings.TrimSpace(k), Value: v})
	}
	it, err := pool.Add(ctx, *group, p)
	if err != nil {
		return err
	}
	log.Info("stock_added", zap.String("group", *group), zap.Int64("item_id", it.ID))
	fmt.Printf("added item #%d to %s\n", it.ID, *group)
	return nil
}

func count(ctx context.Context, cfg config.Config, pool inventory.Pool, args []string) error {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	group := fs.String("group", "", "only this group")
	if err := fs.Parse(args); err != nil {
		return err
	}
	groups := []string{*group}
	if *group == "" {
		cat, err := app.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		groups = groups[:0]
		for _, g := range cat.Groups() {
			groups = append(groups, g.ID)
		}
	}
	for _, g := range groups {
		n, err := pool.Count(ctx, g)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %d\n", g, n)
	}
	return nil
}
