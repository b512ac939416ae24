package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"homefeed/config"
)

func buildConnectionString(cfg config.TomlDatabase) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)
}

// connection opens the database and verifies it is reachable, retrying
// with exponential backoff so the service survives the database coming
// up after it.
func connection(cfg config.TomlDatabase) (*sql.DB, error) {
	db, err := sql.Open("postgres", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(func() error {
		if err := db.Ping(); err != nil {
			log.WithFields(log.Fields{
				"host": cfg.Host,
				"port": cfg.Port,
				"name": cfg.Name,
			}).Warn("Database not reachable yet, retrying")
			return err
		}
		return nil
	}, policy); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(20)           // Allow multiple concurrent operations
	db.SetMaxIdleConns(10)           // Keep some connections ready
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	return db, nil
}
