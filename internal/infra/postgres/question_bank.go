package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-quiz-service/internal/domain"
)

// QuestionBank serves questions stored in Postgres, for play without the
// public provider.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

// FetchQuestions returns a random batch matching the query's category and difficulty.
func (b *QuestionBank) FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT category, difficulty, question, correct_answer, incorrect_answers
		FROM questions
		WHERE ($1 = 0 OR category_id = $1)
		  AND ($2 = '' OR difficulty = $2)
		ORDER BY random()
		LIMIT $3
	`, query.Category, query.Difficulty, query.Amount)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q         domain.Question
			incorrect []byte
		)
		if err := rows.Scan(&q.Category, &q.Difficulty, &q.Text, &q.CorrectAnswer, &incorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(incorrect, &q.IncorrectAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}

// Insert stores questions under categoryID, skipping ones already present.
// It returns the number of new rows.
func (b *QuestionBank) Insert(ctx context.Context, categoryID int, questions []domain.Question) (int, error) {
	inserted := 0
	for _, q := range questions {
		incorrect, err := json.Marshal(q.IncorrectAnswers)
		if err != nil {
			return inserted, fmt.Errorf("marshal answers: %w", err)
		}
		tag, err := b.pool.Exec(ctx, `
			INSERT INTO questions (category_id, category, difficulty, question, correct_answer, incorrect_answers)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (category_id, question) DO NOTHING
		`, categoryID, q.Category, q.Difficulty, q.Text, q.CorrectAnswer, incorrect)
		if err != nil {
			return inserted, fmt.Errorf("insert question: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
