package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridworks/prodcost/app"
	"github.com/gridworks/prodcost/config"
	"github.com/gridworks/prodcost/infra/logger"

	// Register the metrics sink factories.
	_ "github.com/gridworks/prodcost/infra/metrics"
)

var (
	cfgPath    string
	systemPath string
)

var rootCmd = &cobra.Command{
	Use:   "prodcost",
	Short: "Rolling-horizon production-cost simulation",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&systemPath, "system", "s", "system.json", "grid system file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg, systemPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
