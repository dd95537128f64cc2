package check

import (
	"ImeiGuard/internal/core/workflow/forms"
	"ImeiGuard/internal/interfaces/cli/app"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <imei>",
		Short: "Look up an IMEI in the registry",
		Long:  `Verify one IMEI against the configured registry and record the lookup in the search history.`,
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	imei := strings.TrimSpace(args[0])
	if !forms.IsIMEI(imei) {
		return fmt.Errorf("%q is not a 15-digit IMEI", imei)
	}

	cfg, log, err := app.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, &log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	search, err := a.Registry.VerifyImei(ctx, imei)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s\n", search.IMEI, search.Result)
	if d := search.DeviceInfo; d != nil {
		fmt.Fprintf(out, "device: %s %s (%s)\n", d.Brand, d.Model, d.Type)
	}
	return nil
}
