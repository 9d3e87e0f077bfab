// Package cli defines the trackify commands. Each command receives the
// parsed *config.Config.
package cli

import (
	"github.com/alecthomas/kong"

	"github.com/dukerupert/trackify/internal/config"
)

type CLI struct {
	Version       kong.VersionFlag `help:"Print version and exit."`
	config.Config `embed:""`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API."`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations and print the schema version."`
	Backup  BackupCmd  `cmd:"" help:"Encrypted database snapshots in S3-compatible storage."`
}
