package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hackgods/vendor-booking/internal/db"
	"github.com/hackgods/vendor-booking/internal/interval"
	"github.com/hackgods/vendor-booking/internal/logger"
)

const seedDays = 14

func main() {
	logger.Init(logger.Config{Level: "info", Environment: os.Getenv("APP_ENV"), Service: "seed"})
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	vendors, err := seedVendors(context.Background(), pool, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("seed vendors")
	}
	if err := seedWindows(context.Background(), pool, vendors); err != nil {
		log.Fatal().Err(err).Msg("seed availability windows")
	}
	if err := seedCustomers(context.Background(), pool, 2000); err != nil {
		log.Fatal().Err(err).Msg("seed customers")
	}

	log.Info().Msg("seed complete")
}

func seedVendors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding vendors")

	categories := map[string][]string{
		"Catering":    {"Buffet", "Plated dinner", "Canapés"},
		"Photography": {"Half-day shoot", "Full-day shoot"},
		"Music":       {"DJ set", "String quartet", "Live band"},
		"Decor":       {"Floral styling", "Venue dressing"},
		"Venue":       {"Hall hire", "Garden hire"},
	}
	names := make([]string, 0, len(categories))
	for c := range categories {
		names = append(names, c)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		category := names[gofakeit.Number(0, len(names)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO vendors (id, name, category, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Company(), category)
		if err != nil {
			return nil, err
		}

		for _, service := range categories[category] {
			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, vendor_id, name, price_cents, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, uuid.New(), id, service, int64(gofakeit.Number(200, 5000))*100)
			if err != nil {
				return nil, err
			}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Info().Msg("vendors seeded")
	return ids, nil
}

func clockValue(c interval.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}
}

// seedWindows declares a morning and an afternoon window per vendor per day
// for the next two weeks. Roughly one vendor in ten also opens overnight.
func seedWindows(ctx context.Context, pool *pgxpool.Pool, vendors []uuid.UUID) error {
	today := interval.Day(time.Now().UTC())

	var rows [][]any
	for _, vendorID := range vendors {
		overnight := gofakeit.Number(1, 10) == 1
		for d := 0; d < seedDays; d++ {
			date := today.AddDate(0, 0, d)
			open := interval.Clock(gofakeit.Number(8, 10) * 60)

			rows = append(rows,
				[]any{uuid.New(), vendorID, date, clockValue(open), clockValue(13 * 60), true},
				[]any{uuid.New(), vendorID, date, clockValue(14 * 60), clockValue(20 * 60), true},
			)
			if overnight {
				rows = append(rows, []any{uuid.New(), vendorID, date, clockValue(22 * 60), clockValue(2 * 60), true})
			}
		}
	}

	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"availability_windows"},
		[]string{"id", "vendor_id", "date", "start_clock", "end_clock", "is_open"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}

	log.Info().Int64("rows", n).Msg("availability windows seeded")
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding customers")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			batch.Queue(`
				INSERT INTO customers (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		log.Info().Int("done", end).Int("total", count).Msg("customers seeded")
	}

	return nil
}
