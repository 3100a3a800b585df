// Command ledger-import loads product code dumps from the old shop into the
// legacy_codes table and advances the ledger sequence past the highest
// imported code, so freshly minted codes can never collide with historical
// ones. Dumps are gzipped text files with one code per line and may contain
// hundreds of millions of duplicate rows; a bloom filter keeps the in-memory
// dedup set small.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/albyshop/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	insertBatch   = 5_000
)

// dedup collects distinct codes across all dump files. The bloom filter
// answers "definitely new" without touching the map; only probable repeats
// pay for the exact check.
type dedup struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	codes  map[string]string // code -> source file
}

func newDedup() *dedup {
	return &dedup{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		codes:  make(map[string]string),
	}
}

// add records code from source and reports whether it was new.
func (d *dedup) add(code, source string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(code) {
		if _, seen := d.codes[code]; seen {
			return false
		}
	}
	d.filter.AddString(code)
	d.codes[code] = source
	return true
}

func main() {
	var (
		databaseURL string
		dataDir     string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz code dumps")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("ledger import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("ledger import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list dump files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz dumps found in %s", dataDir)
	}

	slog.Info("scanning dumps", slog.Int("files", len(files)))

	codes := newDedup()

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(scanDump(gctx, f, codes))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "scan dumps")
	}

	slog.Info("distinct codes found", slog.Int("count", len(codes.codes)))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeCodes(ctx, pool, codes.codes); err != nil {
		return errors.Wrap(err, "write legacy codes")
	}

	if err := advanceSequence(ctx, pool, codes.codes); err != nil {
		return errors.Wrap(err, "advance ledger sequence")
	}

	return nil
}

// scanDump streams one gzipped dump and feeds every non-empty line into the
// shared dedup set.
func scanDump(ctx context.Context, path string, codes *dedup) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		source := filepath.Base(path)
		var total, fresh uint64

		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			code := strings.TrimSpace(scanner.Text())
			if code == "" {
				continue
			}

			total++
			if codes.add(code, source) {
				fresh++
			}
			if total%progressEvery == 0 {
				slog.Info("scan progress",
					slog.String("file", source),
					slog.Uint64("lines", total),
				)
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("scan complete",
			slog.String("file", source),
			slog.Uint64("lines", total),
			slog.Uint64("new_codes", fresh),
		)
		return nil
	}
}

// writeCodes upserts distinct codes in batches.
func writeCodes(ctx context.Context, pool *pgxpool.Pool, codes map[string]string) error {
	slog.Info("writing legacy codes", slog.Int("count", len(codes)))

	batch := &pgx.Batch{}
	written := 0

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "send batch")
		}
		written += batch.Len()
		slog.Info("write progress", slog.Int("written", written), slog.Int("total", len(codes)))
		batch = &pgx.Batch{}
		return nil
	}

	for code, source := range codes {
		batch.Queue(`
			INSERT INTO legacy_codes (code, source) VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING`,
			code, source,
		)
		if batch.Len() >= insertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// advanceSequence moves the product_codes identity past the highest numeric
// legacy code. Non-numeric codes from the old shop cannot collide with
// minted ones and are skipped.
func advanceSequence(ctx context.Context, pool *pgxpool.Pool, codes map[string]string) error {
	var maxSeq int64
	for code := range codes {
		n, err := strconv.ParseInt(code, 10, 64)
		if err != nil {
			continue
		}
		if n > maxSeq {
			maxSeq = n
		}
	}
	if maxSeq == 0 {
		slog.Info("no numeric legacy codes, sequence unchanged")
		return nil
	}

	_, err := pool.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('product_codes', 'id'),
			GREATEST($1::bigint, (SELECT COALESCE(MAX(id), 0) FROM product_codes)))`,
		maxSeq,
	)
	if err != nil {
		return errors.Wrap(err, "setval product_codes sequence")
	}

	slog.Info("ledger sequence advanced", slog.Int64("to", maxSeq))
	return nil
}
