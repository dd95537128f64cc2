package main

import (
	"ImeiGuard/internal/interfaces/cli/check"
	"ImeiGuard/internal/interfaces/cli/migrate"
	"ImeiGuard/internal/interfaces/cli/serve"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "imeiguard",
		Short:        "ImeiGuard - device verification bot",
		Long:         `ImeiGuard checks, registers and transfers devices by IMEI over Telegram.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serve.NewCommand(),
		migrate.NewCommand(),
		check.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
