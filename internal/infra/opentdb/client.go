package opentdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/domain"
)

// DefaultBaseURL is the public Open Trivia Database endpoint.
const DefaultBaseURL = "https://opentdb.com/api.php"

// Response codes documented by OpenTDB.
const (
	codeSuccess          = 0
	codeNoResults        = 1
	codeInvalidParameter = 2
	codeTokenNotFound    = 3
	codeTokenEmpty       = 4
	codeRateLimit        = 5
)

var (
	// ErrRateLimited is returned when retries are exhausted on OpenTDB's rate limit.
	ErrRateLimited = errors.New("opentdb rate limit exceeded")
	// ErrRejected is returned for response codes that retrying cannot fix.
	ErrRejected = errors.New("opentdb rejected request")
)

type apiResponse struct {
	ResponseCode int         `json:"response_code"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	Logger          *zap.Logger
}

// Client fetches multiple-choice questions from OpenTDB, retrying transient
// failures with exponential backoff.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	maxRetries      uint64
	initialInterval time.Duration
	logger          *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.InitialInterval <= 0 {
		// OpenTDB allows one request per 5 seconds per IP.
		opts.InitialInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		httpClient:      &http.Client{Timeout: opts.Timeout},
		baseURL:         opts.BaseURL,
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		logger:          opts.Logger,
	}
}

// FetchQuestions returns the whole batch or an error, never a partial batch.
func (c *Client) FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	endpoint, err := c.endpoint(query)
	if err != nil {
		return nil, err
	}

	var questions []domain.Question
	operation := func() error {
		result, err := c.fetchOnce(ctx, endpoint)
		if err != nil {
			return err
		}
		questions = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("question fetch failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), notify); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	return questions, nil
}

func (c *Client) endpoint(query domain.QuestionQuery) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	params := u.Query()
	params.Set("amount", strconv.Itoa(query.Amount))
	if query.Category > 0 {
		params.Set("category", strconv.Itoa(query.Category))
	}
	if query.Difficulty != "" {
		params.Set("difficulty", query.Difficulty)
	}
	params.Set("type", "multiple")
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]domain.Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	switch payload.ResponseCode {
	case codeSuccess:
	case codeRateLimit:
		return nil, ErrRateLimited
	case codeNoResults, codeInvalidParameter, codeTokenNotFound, codeTokenEmpty:
		return nil, backoff.Permanent(fmt.Errorf("%w: response code %d", ErrRejected, payload.ResponseCode))
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: unknown response code %d", ErrRejected, payload.ResponseCode))
	}
	if len(payload.Results) == 0 {
		return nil, backoff.Permanent(domain.ErrNoQuestions)
	}

	questions := make([]domain.Question, 0, len(payload.Results))
	for _, r := range payload.Results {
		questions = append(questions, toQuestion(r))
	}
	return questions, nil
}

// toQuestion decodes the HTML entities OpenTDB embeds so every field is plain text.
func toQuestion(r apiResult) domain.Question {
	incorrect := make([]string, 0, len(r.IncorrectAnswers))
	for _, a := range r.IncorrectAnswers {
		incorrect = append(incorrect, html.UnescapeString(a))
	}
	return domain.Question{
		Category:         html.UnescapeString(r.Category),
		Difficulty:       r.Difficulty,
		Text:             html.UnescapeString(r.Question),
		CorrectAnswer:    html.UnescapeString(r.CorrectAnswer),
		IncorrectAnswers: incorrect,
	}
}
