package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"invoiceapi/internal/batch"
	"invoiceapi/internal/config"
	"invoiceapi/internal/export"
	"invoiceapi/internal/extract"
	"invoiceapi/internal/ledger"
	"invoiceapi/internal/logger"
	"invoiceapi/internal/model"
	"invoiceapi/internal/otel"
)

type options struct {
	dir     string
	out     string
	workers int
	timeout time.Duration
	profile string
	ledger  string
	force   bool
}

func main() {
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.dir, "dir", "invoices", "directory to scan for invoice PDFs")
	flag.StringVar(&opts.out, "out", "invoice_data.csv", "output file; .csv or .xlsx")
	flag.IntVar(&opts.workers, "workers", cfg.Extraction.Workers, "documents processed in parallel")
	flag.DurationVar(&opts.timeout, "timeout", cfg.Extraction.DocumentTimeout, "per-document time limit")
	flag.StringVar(&opts.profile, "profile", cfg.Extraction.ProfilePath, "extraction profile file (yaml, json or toml)")
	flag.StringVar(&opts.ledger, "ledger", "", "SQLite file tracking processed files; unchanged files are skipped and new records appended")
	flag.BoolVar(&opts.force, "force", false, "reprocess files the ledger has already seen")
	flag.Parse()

	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, Location: cfg.Location()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	if err := run(ctx, log, opts); err != nil {
		log.Error().Err(err).Msg("extraction failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, opts options) error {
	format, err := export.FormatFromPath(opts.out)
	if err != nil {
		return err
	}
	if opts.ledger != "" && format != export.FormatCSV {
		return errors.New("-ledger appends to the output and needs a .csv file")
	}

	profile, err := extract.LoadProfile(opts.profile)
	if err != nil {
		return err
	}

	paths, dirStats, err := batch.Discover(opts.dir, nil)
	if err != nil {
		return err
	}
	log.Info().
		Str("dir", opts.dir).
		Uint32("scanned", dirStats.Scanned).
		Uint32("matched", dirStats.Matched).
		Uint32("failed", dirStats.Failed).
		Msg("directory scanned")

	var lg *ledger.Ledger
	if opts.ledger != "" {
		lg, err = ledger.Open(ctx, opts.ledger)
		if err != nil {
			return err
		}
		defer lg.Close()
	}

	sources, hashes, skipped, err := collect(ctx, log, lg, paths, opts.force)
	if err != nil {
		return err
	}

	pipeline := extract.NewPipeline(profile)
	results := batch.Run(ctx, pipeline, sources, batch.Options{Workers: opts.workers, Timeout: opts.timeout})

	var records []model.InvoiceRecord
	for _, r := range results {
		if r.Err != nil {
			log.Warn().Err(r.Err).Str("file", r.Name).Msg("document skipped")
		}
		records = append(records, r.Records...)
	}

	if err := writeOutput(opts.out, format, records, lg != nil); err != nil {
		return err
	}

	if lg != nil {
		for _, r := range results {
			// Unreadable files stay out of the ledger so the next run retries them.
			if r.Err != nil {
				continue
			}
			if err := lg.Record(ctx, ledger.Entry{
				Path:        r.DocumentID,
				ContentHash: hashes[r.DocumentID],
				Records:     len(r.Records),
				Method:      string(r.Method),
			}); err != nil {
				return err
			}
		}
	}

	stats := batch.Summarize(results)
	ev := log.Info().
		Int("files", stats.Documents).
		Int("skipped_unchanged", skipped.files).
		Int("skipped_records", skipped.records).
		Int("records", stats.Records).
		Int("unique_invoices", stats.Invoices).
		Int("read_errors", stats.ReadErrors).
		Str("output", opts.out)
	for m, n := range stats.Methods {
		ev = ev.Int("method_"+string(m), n)
	}
	ev.Msg("extraction complete")
	return nil
}

// skipCount tallies unchanged files and the records they produced last time.
type skipCount struct {
	files   int
	records int
}

// collect turns paths into pipeline sources. With a ledger, files whose content
// is unchanged since the last run are left out unless force is set.
func collect(ctx context.Context, log zerolog.Logger, lg *ledger.Ledger, paths []string, force bool) ([]extract.Source, map[string]string, skipCount, error) {
	sources := make([]extract.Source, 0, len(paths))
	hashes := make(map[string]string, len(paths))
	if lg == nil {
		for _, p := range paths {
			sources = append(sources, extract.Source{ID: p, Path: p})
		}
		return sources, hashes, skipCount{}, nil
	}

	var skipped skipCount
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			// The pipeline reports it as a read error.
			sources = append(sources, extract.Source{ID: p, Path: p})
			continue
		}
		hash := model.ContentHash(data)
		if !force {
			seen, err := lg.Seen(ctx, p, hash)
			if err != nil {
				return nil, nil, skipped, err
			}
			if seen {
				prev, err := lg.Get(ctx, p)
				if err != nil {
					return nil, nil, skipped, err
				}
				skipped.files++
				if prev != nil {
					skipped.records += prev.Records
					log.Debug().Str("file", p).Int("previous_records", prev.Records).
						Str("previous_method", prev.Method).Time("processed_at", prev.ProcessedAt).
						Msg("unchanged, skipping")
				}
				continue
			}
		}
		hashes[p] = hash
		sources = append(sources, extract.Source{ID: p, Path: p, Data: data})
	}
	return sources, hashes, skipped, nil
}

func writeOutput(path string, format export.Format, records []model.InvoiceRecord, appendCSV bool) (err error) {
	if appendCSV {
		return export.AppendCSVFile(path, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return export.Write(f, format, records)
}
