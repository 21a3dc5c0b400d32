package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/tui"
)

// NewPlayCmd runs a quiz session in the terminal, in process.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		clientID string
		username string
		password string
		source   string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if source != "" {
				cfg.Quiz.Source = source
			}

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			questions, err := b.questionSource()
			if err != nil {
				return err
			}
			credentials := b.credentialStore()
			progress := b.progressStore()

			if username != "" {
				auth := app.NewAuthService(credentials, progress, log.Named("auth"))
				registered, err := auth.Login(ctx, clientID, username, password)
				if err != nil {
					return err
				}
				if registered {
					fmt.Fprintf(cmd.OutOrStdout(), "Registered %s.\n", username)
				}
			}

			service := app.NewQuizService(b.sessionStore(), credentials, progress, questions, b.settings(), log.Named("quiz"))
			controller, err := service.Mount(ctx, clientID)
			if err != nil {
				return err
			}
			defer service.Unmount(clientID, controller)
			return tui.Run(ctx, controller)
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "terminal", "client id that scopes the logged-in user")
	cmd.Flags().StringVar(&username, "user", "", "log in as this user before playing")
	cmd.Flags().StringVar(&password, "password", "", "password for --user")
	cmd.Flags().StringVar(&source, "source", "", "question source: opentdb, static or postgres")
	return cmd
}
