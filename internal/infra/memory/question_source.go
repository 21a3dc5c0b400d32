package memory

import (
	"context"

	"trivia-quiz-service/internal/domain"
)

// StaticQuestionSource serves a fixed question list (useful for tests/demos).
type StaticQuestionSource struct {
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

// FetchQuestions returns up to query.Amount questions in list order.
func (s *StaticQuestionSource) FetchQuestions(_ context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	if len(s.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	n := query.Amount
	if n <= 0 || n > len(s.questions) {
		n = len(s.questions)
	}
	return append([]domain.Question(nil), s.questions[:n]...), nil
}

// SampleQuestions is a built-in batch for playing without network access.
func SampleQuestions() []domain.Question {
	q := func(text, correct string, incorrect ...string) domain.Question {
		return domain.Question{
			Category:         "Science: Gadgets",
			Difficulty:       "easy",
			Text:             text,
			CorrectAnswer:    correct,
			IncorrectAnswers: incorrect,
		}
	}
	return []domain.Question{
		q("Which company released the first iPod?", "Apple", "Sony", "Microsoft", "Creative"),
		q("What does the \"USB\" in USB drive stand for?", "Universal Serial Bus", "Unified System Bus", "Universal Storage Block", "Ultra Speed Bus"),
		q("Which company developed the Walkman portable cassette player?", "Sony", "Panasonic", "Toshiba", "Philips"),
		q("What is the name of Amazon's voice assistant?", "Alexa", "Siri", "Cortana", "Bixby"),
		q("Which gaming console was released by Nintendo in 2006?", "Wii", "GameCube", "Switch", "Nintendo 64"),
		q("What type of battery is most common in modern smartphones?", "Lithium-ion", "Nickel-cadmium", "Lead-acid", "Alkaline"),
		q("Which company makes the Galaxy line of phones?", "Samsung", "LG", "Huawei", "Nokia"),
		q("What does \"GPS\" stand for?", "Global Positioning System", "General Position Service", "Geographic Pointing System", "Global Pathway Sensor"),
		q("Which device was marketed with the slogan \"1,000 songs in your pocket\"?", "iPod", "Zune", "Walkman", "Discman"),
		q("What is the wireless technology named after a Danish king?", "Bluetooth", "Wi-Fi", "Zigbee", "NFC"),
	}
}
