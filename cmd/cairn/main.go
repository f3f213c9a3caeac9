// Command cairn is the CLI surface over the engine package: list,
// append, and fetch, grounded on original_source/src/cli.rs's clap
// Parser/Subcommand derive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"cairn/config"
	"cairn/engine"
	"cairn/remote"
)

// Exit codes match the format's CLI contract: 0 success, 1 user/config
// error, 2 integrity failure.
const (
	exitOK        = 0
	exitUserError = 1
	exitIntegrity = 2
)

var configPath string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(classifyErr(err))
	}
}

func classifyErr(err error) int {
	if errors.Is(err, engine.ErrIntegrity) {
		return exitIntegrity
	}
	return exitUserError
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cairn",
		Short:         "content-addressed, chunked, encrypted backup engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the cairn config file")

	root.AddCommand(newListCmd(), newAppendCmd(), newFetchCmd())
	return root
}

func buildEngine() (*engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	keys, err := loadOrCreateKeys(cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	var store remote.Store
	if cfg.Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("cairn: load AWS config: %w", err)
		}
		store = remote.NewS3Store(ctx, s3.NewFromConfig(awsCfg), cfg.Bucket)
	} else {
		store = remote.NewMemStore()
	}

	logger := log.New(os.Stderr)
	return engine.New(store, keys, cfg, logger), nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "enumerate snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			names, err := eng.List()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newAppendCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "append",
		Short: "create a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			if name == "" {
				name = defaultSnapshotName()
			}
			return eng.Append(name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (defaults to a timestamp with a short random suffix)")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "fetch <name>",
		Short: "restore a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			if dest == "" {
				dest = "."
			}
			return eng.Fetch(args[0], dest)
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "destination directory (defaults to the working directory)")
	return cmd
}
