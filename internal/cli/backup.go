package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/trackify/internal/backup"
	"github.com/dukerupert/trackify/internal/config"
	"github.com/dukerupert/trackify/internal/database"
	"github.com/dukerupert/trackify/internal/logging"
)

const backupTimeout = 10 * time.Minute

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the database and upload it encrypted."`
	List    BackupListCmd    `cmd:"" help:"List stored snapshots, newest first."`
	Restore BackupRestoreCmd `cmd:"" help:"Download a snapshot and replace the database file."`
	Prune   BackupPruneCmd   `cmd:"" help:"Delete all but the newest snapshots."`
}

// S3Flags holds the flags every backup command needs.
type S3Flags struct {
	S3 backup.S3Config `embed:"" prefix:"s3-"`
}

func (s S3Flags) manager(cfg *config.Config) *backup.Manager {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat).With("component", "backup")
	return backup.NewManager(backup.NewS3Client(s.S3), s.S3.Bucket, s.S3.Prefix, logger)
}

type BackupCreateCmd struct {
	S3Flags    `embed:""`
	Passphrase string `help:"Passphrase used to encrypt the snapshot." env:"TRACKIFY_BACKUP_PASSPHRASE" required:""`
	Keep       int    `help:"After uploading, keep only this many snapshots (0 keeps all)." default:"0"`
}

func (c *BackupCreateCmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	m := c.manager(cfg)
	obj, err := m.Snapshot(ctx, db, c.Passphrase)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %s (%d bytes)\n", obj.Key, obj.Size)

	if c.Keep > 0 {
		removed, err := m.Prune(ctx, c.Keep)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d old snapshot(s)\n", removed)
	}
	return nil
}

type BackupListCmd struct {
	S3Flags `embed:""`
}

func (c *BackupListCmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	objects, err := c.manager(cfg).List(ctx)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
	for _, o := range objects {
		fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format(time.RFC3339))
	}
	return w.Flush()
}

type BackupRestoreCmd struct {
	S3Flags    `embed:""`
	Key        string `arg:"" help:"Snapshot key to restore."`
	Passphrase string `help:"Passphrase the snapshot was encrypted with." env:"TRACKIFY_BACKUP_PASSPHRASE" required:""`
}

// Run replaces the configured database file. Stop the server first.
func (c *BackupRestoreCmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := c.manager(cfg).Restore(ctx, c.Key, c.Passphrase, cfg.DBPath); err != nil {
		return err
	}
	fmt.Printf("Restored %s to %s\n", c.Key, cfg.DBPath)
	return nil
}

type BackupPruneCmd struct {
	S3Flags `embed:""`
	Keep    int `help:"Number of newest snapshots to keep." default:"7"`
}

func (c *BackupPruneCmd) Run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	removed, err := c.manager(cfg).Prune(ctx, c.Keep)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d snapshot(s)\n", removed)
	return nil
}
