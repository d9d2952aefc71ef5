// Command seeder loads tiered discount configurations from a YAML file into the
// configured store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-discount/internal/config"
	"github.com/noah-isme/backend-discount/internal/discount"
	"github.com/noah-isme/backend-discount/internal/evaluation"
	"github.com/noah-isme/backend-discount/internal/lock"
	"github.com/noah-isme/backend-discount/internal/obs"
	"github.com/noah-isme/backend-discount/internal/store"
)

type seedFile struct {
	Discounts []seedDiscount `yaml:"discounts"`
}

type seedDiscount struct {
	ID                    string `yaml:"id"`
	discount.TieredConfig `yaml:",inline"`
}

func main() {
	file := flag.String("file", "seed/discounts.yaml", "YAML file with discount configurations")
	flag.Parse()

	logger := obs.NewLogger("console", "info")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if cfg.StoreDriver == config.StoreNone {
		logger.Fatal().Msg("STORE_DRIVER is none; nothing to seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	backend, err := store.Open(ctx, store.OpenOptions{
		Driver:          cfg.StoreDriver,
		RedisURL:        cfg.RedisURL,
		DatabaseURL:     cfg.DatabaseURL,
		CacheTTL:        cfg.ConfigCacheTTL,
		Migrate:         true,
		ApplicationName: "discount-seeder",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer func() { _ = backend.Close() }()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal().Err(err).Msg("open seed file")
	}
	defer f.Close()

	svc := &evaluation.Service{Store: backend.Store, Logger: logger}
	var n int
	run := func(ctx context.Context) error {
		var err error
		n, err = seed(ctx, svc, f, logger)
		return err
	}
	if backend.Redis != nil {
		locker := lock.Locker{Client: backend.Redis, Prefix: "discount:lock:"}
		err = locker.WithLock(ctx, "seed", time.Minute, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("seed discounts")
	}
	logger.Info().Int("discounts", n).Msg("seeding completed")
}

func seed(ctx context.Context, svc *evaluation.Service, r io.Reader, logger zerolog.Logger) (int, error) {
	var doc seedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}
	for i, d := range doc.Discounts {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return i, fmt.Errorf("discounts[%d]: id is required", i)
		}
		encoded, err := d.TieredConfig.Encode()
		if err != nil {
			return i, err
		}
		if _, err := svc.PutConfiguration(ctx, id, encoded); err != nil {
			return i, fmt.Errorf("seed %s: %w", id, err)
		}
		logger.Debug().Str("discount_id", id).Int("tiers", len(d.Mapping)).Msg("seeded")
	}
	return len(doc.Discounts), nil
}
