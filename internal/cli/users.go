package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
)

// NewUsersCmd lists registered usernames.
func NewUsersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			names, err := app.NewAuthService(b.credentialStore(), nil, log).Usernames(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
