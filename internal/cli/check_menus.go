package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/admin-console/internal/app"
)

var (
	checkEmail    string
	checkPassword string
)

var checkMenusCmd = &cobra.Command{
	Use:   "check-menus",
	Short: "Report route titles the backend menu list does not define",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if checkPassword == "" {
			checkPassword = os.Getenv("CONSOLE_CHECK_PASSWORD")
		}
		missing, err := app.CheckMenus(cmd.Context(), cfg, checkEmail, checkPassword, logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(missing) == 0 {
			fmt.Fprintln(out, "all route titles are defined by the backend")
			return nil
		}
		for _, title := range missing {
			fmt.Fprintf(out, "missing: %s\n", title)
		}
		return fmt.Errorf("%d route title(s) missing from backend menus", len(missing))
	},
}

func init() {
	checkMenusCmd.Flags().StringVar(&checkEmail, "email", "", "account used to read the menu list")
	checkMenusCmd.Flags().StringVar(&checkPassword, "password", "", "account password (or CONSOLE_CHECK_PASSWORD)")
	_ = checkMenusCmd.MarkFlagRequired("email")
}
