package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/trivia-challenge-api/internal/config"
	"github.com/yourusername/trivia-challenge-api/pkg/logger"
)

func main() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}

	configPath := flag.String("config", defaultConfig, "path to config file")
	forceVersion := flag.Int("force", -1, "force migrate version to clean a dirty state (-1 to skip)")
	skipSchemaFix := flag.Bool("skip-schema-fix", false, "do not rename legacy columns")
	flag.Parse()

	log := logger.New("fix-db", logger.Config{Level: os.Getenv("LOG_LEVEL"), Format: "text"})

	dbCfg, err := config.LoadDatabase(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load database config")
	}

	db, err := sql.Open("postgres", dbCfg.PostgresURL())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("Failed to ping database")
	}

	if *forceVersion >= 0 {
		forceMigrationVersion(db, dbCfg.MigrationsPath, *forceVersion, log)
	}

	if !*skipSchemaFix {
		changed, err := fixChallengeSchema(ctx, db, log)
		if err != nil {
			log.WithError(err).Fatal("Schema fix failed, transaction rolled back")
		}
		if changed {
			log.Info("Схема таблицы challenge исправлена")
		}
	}

	log.Info("Success! You can now run the app normally.")
}

// forceMigrationVersion снимает dirty-флаг, выставляя версию миграций
func forceMigrationVersion(db *sql.DB, migrationsPath string, version int, log logrus.FieldLogger) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.WithError(err).Fatal("Failed to create migrate driver")
	}

	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		log.WithError(err).Fatal("Failed to create migrate instance")
	}

	log.WithField("version", version).Info("Forcing migration version to clean dirty state...")
	if err := m.Force(version); err != nil {
		log.WithError(err).Fatal("Failed to force version")
	}
}
