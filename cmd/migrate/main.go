package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/hackgods/clinic-scheduling-assistant/internal/logging"
	"github.com/hackgods/clinic-scheduling-assistant/migrations"
)

// usage: migrate [up | down | force <version>]
func main() {
	_ = godotenv.Load()
	log := logging.New(os.Getenv("LOG_LEVEL"))

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("ping db")
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.WithError(err).Fatal("db driver")
	}

	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.WithError(err).Fatal("source driver")
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.WithError(err).Fatal("create migrator")
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		if len(os.Args) < 3 {
			log.Fatal("force needs a version")
		}
		version, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			log.WithError(convErr).Fatal("invalid version")
		}
		err = m.Force(version)
	default:
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).Fatalf("migrate %s", cmd)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.WithError(verr).Fatal("read version")
	}
	fmt.Printf("migrate %s complete (version=%d dirty=%v)\n", cmd, version, dirty)
}
