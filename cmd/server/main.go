package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-nafath-server/internal/config"
	"github.com/jrsteele09/go-nafath-server/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var c config.Config

	cmd := &cobra.Command{
		Use:           "nafath-server",
		Short:         "Nafath identity verification service",
		Long:          "Runs the Nafath identity verification API used to pre-fill job applications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c = config.New()
			logger.Setup(c.GetEnv(), c.GetLogLevel(), os.Stdout)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(c)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(c)
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Delete expired verification sessions once and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return sweepOnce(cmd.Context(), c)
			},
		},
		newMigrateCommand(func() config.Config { return c }),
	)

	return cmd
}

func newMigrateCommand(getConfig func() config.Config) *cobra.Command {
	var forceVersion int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply session store migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateStore(cmd.Context(), getConfig(), forceVersion)
		},
	}
	cmd.Flags().IntVar(&forceVersion, "force", -1, "Force migration version (use to fix dirty migration state)")
	return cmd
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
