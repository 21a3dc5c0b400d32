package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
	pgstore "trivia-quiz-service/internal/infra/postgres"
)

// NewBankCmd manages the Postgres question bank.
func NewBankCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Manage the offline question bank",
	}
	cmd.AddCommand(newBankImportCmd(configPath))
	return cmd
}

func newBankImportCmd(configPath *string) *cobra.Command {
	var query domain.QuestionQuery
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch questions from OpenTDB into the question bank",
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
			if b.pool == nil {
				return fmt.Errorf("postgres url not configured")
			}

			questions, err := b.openTDB().FetchQuestions(ctx, query)
			if err != nil {
				return err
			}
			inserted, err := pgstore.NewQuestionBank(b.pool).Insert(ctx, query.Category, questions)
			if err != nil {
				return err
			}
			log.Info("questions imported",
				zap.Int("fetched", len(questions)),
				zap.Int("inserted", inserted),
				zap.Int("category", query.Category),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d questions.\n", inserted, len(questions))
			return nil
		},
	}
	cmd.Flags().IntVar(&query.Amount, "amount", 50, "number of questions to fetch (OpenTDB allows at most 50)")
	cmd.Flags().IntVar(&query.Category, "category", 30, "OpenTDB category id")
	cmd.Flags().StringVar(&query.Difficulty, "difficulty", "easy", "easy, medium or hard")
	return cmd
}
