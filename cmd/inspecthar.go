package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cpfl/internal/cpfl"
	"cpfl/internal/logger"
)

var inspectHARCmd = &cobra.Command{
	Use:   "inspect-har [har-file]",
	Short: "Suggest API endpoints and headers from a browser HAR capture",
	Long: `Scan a HAR file exported from the browser's network tab and list the
provider API endpoints it contains, along with the authentication-relevant
request headers. Use it to fill in a consumer unit's payload and
extra_headers during onboarding.`,
	Example: `  cpfl inspect-har capture.har`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInspectHAR,
}

func init() {
	rootCmd.AddCommand(inspectHARCmd)
}

func runInspectHAR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("inspect-har")

	report, err := cpfl.InspectHAR(args[0])
	if err != nil {
		return err
	}

	log.Info().Int("endpoints", len(report.Endpoints)).Int("headers", len(report.Headers)).Msg("HAR scanned")
	fmt.Println("Endpoints found:")
	for _, endpoint := range report.Endpoints {
		fmt.Printf("  %s\n", endpoint)
	}
	fmt.Println("Relevant headers:")
	for _, header := range report.Headers {
		fmt.Printf("  %s\n", header)
	}
	return nil
}
