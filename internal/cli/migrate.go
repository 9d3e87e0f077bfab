package cli

import (
	"fmt"

	"github.com/dukerupert/trackify/internal/config"
	"github.com/dukerupert/trackify/internal/database"
	"github.com/dukerupert/trackify/internal/logging"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(cfg *config.Config) error {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if cfg.DBPath == "" {
		return fmt.Errorf("database path is required")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := database.Version(db)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "db", cfg.DBPath, "version", version)
	fmt.Printf("Database %s at schema version %d\n", cfg.DBPath, version)
	return nil
}
