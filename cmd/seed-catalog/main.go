// Command seed-catalog loads products, sofa variants and rebate schedules from a
// JSON file into the database, and provisions an API key for the admin
// endpoints. Safe to re-run: everything is keyed by slug or name and upserted.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/albyshop/storefront/internal/domain/catalog"
	"github.com/albyshop/storefront/internal/domain/pricing"
	"github.com/albyshop/storefront/internal/storage/postgres"
)

type seedFile struct {
	RebateSchedules []scheduleJSON `json:"rebate_schedules"`
	Products        []productJSON  `json:"products"`
	Variants        []variantJSON  `json:"variants"`
}

type scheduleJSON struct {
	Name   string `json:"name"`
	Scheme string `json:"scheme"`
}

type productJSON struct {
	Kind           string          `json:"kind"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Caption        string          `json:"caption"`
	SortOrder      int             `json:"sort_order"`
	Active         *bool           `json:"active"`
	Code           string          `json:"code"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Weight         decimal.Decimal `json:"weight"`
	WeightByHand   bool            `json:"weight_by_hand"`
	RebateSchedule string          `json:"rebate_schedule"`
	Lamel          *lamelJSON      `json:"lamel"`
}

type lamelJSON struct {
	Width  decimal.Decimal `json:"width"`
	Length decimal.Decimal `json:"length"`
	Depth  decimal.Decimal `json:"depth"`
}

type variantJSON struct {
	SofaModel string          `json:"sofa_model"`
	Fabric    string          `json:"fabric"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Weight    decimal.Decimal `json:"weight"`
}

func main() {
	_ = godotenv.Load()

	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	schedules, err := seedSchedules(ctx, pool, seed.RebateSchedules)
	if err != nil {
		return errors.Wrap(err, "seed rebate schedules")
	}

	if err := seedProducts(ctx, pool, seed.Products, schedules); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedVariants(ctx, pool, seed.Variants); err != nil {
		return errors.Wrap(err, "seed sofa variants")
	}

	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	return nil
}

// seedSchedules upserts rebate schedules by name and returns name -> id.
// Schemes are validated before touching the database so a typo in the seed
// file cannot poison pricing at runtime.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, schedules []scheduleJSON) (map[string]int64, error) {
	ids := make(map[string]int64, len(schedules))

	for _, s := range schedules {
		if _, err := pricing.ParseSchedule(s.Scheme); err != nil {
			return nil, errors.Wrapf(err, "schedule %q", s.Name)
		}

		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO rebate_schedules (name, scheme) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET scheme = EXCLUDED.scheme
			RETURNING id`,
			s.Name, s.Scheme,
		).Scan(&id)
		if err != nil {
			return nil, errors.Wrapf(err, "upsert schedule %q", s.Name)
		}

		ids[s.Name] = id
		slog.Info("upserted rebate schedule", slog.String("name", s.Name))
	}

	return ids, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON, schedules map[string]int64) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		kind := catalog.Kind(p.Kind)
		if !kind.Valid() {
			return errors.Errorf("product %q: unknown kind %q", p.Slug, p.Kind)
		}

		var scheduleID *int64
		if p.RebateSchedule != "" {
			id, ok := schedules[p.RebateSchedule]
			if !ok {
				return errors.Errorf("product %q: unknown rebate schedule %q", p.Slug, p.RebateSchedule)
			}
			scheduleID = &id
		}

		weight := p.Weight
		var lamelW, lamelL, lamelD *string
		if p.Lamel != nil {
			if kind != catalog.KindLamel {
				return errors.Errorf("product %q: lamel dimensions on kind %q", p.Slug, p.Kind)
			}
			w, l, d := p.Lamel.Width.String(), p.Lamel.Length.String(), p.Lamel.Depth.String()
			lamelW, lamelL, lamelD = &w, &l, &d
			spec := &catalog.LamelSpec{Width: w, Length: l, Depth: d, WeightByHand: p.WeightByHand}
			if derived, ok := catalog.DerivedLamelWeight(spec); ok {
				weight = derived
			}
		}

		active := true
		if p.Active != nil {
			active = *p.Active
		}

		var code *string
		if p.Code != "" {
			code = &p.Code
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO products (kind, name, slug, caption, sort_order, active, code,
				unit_price, weight, rebate_schedule_id,
				lamel_width, lamel_length, lamel_depth, weight_by_hand)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (slug) DO UPDATE SET
				kind = EXCLUDED.kind,
				name = EXCLUDED.name,
				caption = EXCLUDED.caption,
				sort_order = EXCLUDED.sort_order,
				active = EXCLUDED.active,
				code = EXCLUDED.code,
				unit_price = EXCLUDED.unit_price,
				weight = EXCLUDED.weight,
				rebate_schedule_id = EXCLUDED.rebate_schedule_id,
				lamel_width = EXCLUDED.lamel_width,
				lamel_length = EXCLUDED.lamel_length,
				lamel_depth = EXCLUDED.lamel_depth,
				weight_by_hand = EXCLUDED.weight_by_hand`,
			string(kind), p.Name, p.Slug, p.Caption, p.SortOrder, active, code,
			p.UnitPrice, weight, scheduleID,
			lamelW, lamelL, lamelD, p.WeightByHand,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Slug)
		}

		slog.Info("upserted product", slog.String("slug", p.Slug), slog.String("kind", p.Kind))
	}

	return nil
}

// seedVariants inserts missing sofa variants, minting a ledger code for each
// new model+fabric pair. Existing pairs only get their price and weight
// refreshed, keeping the already-issued code stable.
func seedVariants(ctx context.Context, pool *pgxpool.Pool, variants []variantJSON) error {
	ledger := postgres.NewCodeLedger(pool)

	for _, v := range variants {
		modelID, err := productIDBySlug(ctx, pool, v.SofaModel)
		if err != nil {
			return errors.Wrapf(err, "variant %s/%s: resolve model", v.SofaModel, v.Fabric)
		}
		fabricID, err := productIDBySlug(ctx, pool, v.Fabric)
		if err != nil {
			return errors.Wrapf(err, "variant %s/%s: resolve fabric", v.SofaModel, v.Fabric)
		}

		tag, err := pool.Exec(ctx, `
			UPDATE sofa_variants SET unit_price = $3, weight = $4
			WHERE sofa_model_id = $1 AND fabric_id = $2`,
			modelID, fabricID, v.UnitPrice, v.Weight,
		)
		if err != nil {
			return errors.Wrapf(err, "update variant %s/%s", v.SofaModel, v.Fabric)
		}
		if tag.RowsAffected() > 0 {
			slog.Info("refreshed variant", slog.String("model", v.SofaModel), slog.String("fabric", v.Fabric))
			continue
		}

		entry, err := ledger.Mint(ctx, catalog.KindSofaModel)
		if err != nil {
			return errors.Wrapf(err, "mint code for variant %s/%s", v.SofaModel, v.Fabric)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO sofa_variants (sofa_model_id, ledger_id, code, fabric_id, unit_price, weight)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			modelID, entry.ID, entry.Code, fabricID, v.UnitPrice, v.Weight,
		)
		if err != nil {
			return errors.Wrapf(err, "insert variant %s/%s", v.SofaModel, v.Fabric)
		}

		slog.Info("created variant",
			slog.String("model", v.SofaModel),
			slog.String("fabric", v.Fabric),
			slog.String("code", entry.Code),
		)
	}

	return nil
}

func productIDBySlug(ctx context.Context, pool *pgxpool.Pool, slug string) (int64, error) {
	var id int64
	if err := pool.QueryRow(ctx, `SELECT id FROM products WHERE slug = $1`, slug).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "product %q", slug)
	}
	return id, nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, name, active)
		VALUES ('default', $1, 'Default admin key', TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, active = TRUE`,
		keyHash,
	)
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
