package app

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/daemon"
	"github.com/MyteScripts/gridbot/internal/logger"
	"github.com/MyteScripts/gridbot/internal/sync"
)

func init() { //nolint: gochecknoinits
	for _, cmd := range []*cobra.Command{exportCmd, importCmd} {
		cmd.Flags().StringVar(
			&configPath,
			"config",
			"",
			"Path to the configuration directory (default ./etc/)",
		)
		cmd.PreRun = syncPreRun
	}

	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "",
		"Write the snapshot to this path instead of the sync directory")

	importCmd.Flags().BoolVar(&importForce, "force", false,
		"Apply the snapshot even when it is older than the configured max age")

	rootCmd.AddCommand(exportCmd, importCmd)
}

// syncPreRun loads the configuration and the logger the same way start does,
// so engine log output lands in the configured files instead of on stdout.
func syncPreRun(_ *cobra.Command, _ []string) {
	if cfg, err = config.ReadConfig(configPath); err != nil {
		panic(err)
	}

	if err = logger.Init(cfg.Log); err != nil {
		panic(err)
	}
}

var (
	exportPath  string
	importForce bool

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write a data snapshot for another host to pick up",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			engine, err := syncEngine()
			if err != nil {
				return err
			}

			path := exportPath
			if path == "" {
				if path, err = engine.Export(); err != nil {
					return err
				}
			} else if err = engine.ExportTo(path); err != nil {
				return err
			}

			fmt.Printf("Snapshot written to %s\n", path)

			return nil
		},
	}

	importCmd = &cobra.Command{
		Use:   "import [snapshot]",
		Short: "Apply a data snapshot produced by another host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			engine, err := syncEngine()
			if err != nil {
				return err
			}

			path := engine.SnapshotPath()
			if len(args) > 0 {
				path = args[0]
			}

			if err = engine.ImportFrom(path, importForce); err != nil {
				if errors.Is(err, sync.ErrSnapshotStale) {
					return errors.Wrap(err, "import refused (--force overrides the age check)")
				}

				return err
			}

			fmt.Printf("Snapshot %s applied.\n", path)

			return nil
		},
	}
)

// syncEngine opens the database and builds a snapshot engine from the
// loaded configuration. Requires a configured sync directory.
func syncEngine() (*sync.Engine, error) {
	return sync.New(daemon.OpenDatabase(&cfg), cfg.Sync)
}
