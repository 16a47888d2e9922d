package main

import (
	"context"
	"flag"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling-assistant/internal/config"
	"github.com/hackgods/clinic-scheduling-assistant/internal/db"
	"github.com/hackgods/clinic-scheduling-assistant/internal/doctor"
	"github.com/hackgods/clinic-scheduling-assistant/internal/logging"
)

func main() {
	count := flag.Int("doctors", 20, "number of generated doctors to add besides Dr. Rao")
	seed := flag.Uint64("seed", 0, "faker seed, 0 picks a random one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Default().WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.LogLevel)
	if cfg.StoreBackend != config.StorePostgres {
		log.Fatal("seed requires STORE_BACKEND=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	store := doctor.NewPgStore(pool)
	doctors := doctor.Catalog(gofakeit.New(*seed), *count)
	log.WithField("doctors", len(doctors)).Info("seeding doctors")

	inserted := 0
	for _, d := range doctors {
		ok, err := store.Insert(ctx, d)
		if err != nil {
			log.WithError(err).Fatal("seed doctors")
		}
		if ok {
			inserted++
			continue
		}
		log.WithFields(logrus.Fields{"name": d.Name}).Debug("doctor already present")
	}

	log.WithFields(logrus.Fields{
		"inserted": inserted,
		"skipped":  len(doctors) - inserted,
	}).Info("seed complete")
}
