// Package zeroshot talks to a zero-shot classification endpoint that ranks a
// text against candidate labels with an NLI model.
package zeroshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"framer/pkg/retry"
	"framer/pkg/score"
)

// DefaultModel is the NLI model the endpoint is expected to serve.
const DefaultModel = "facebook/bart-large-mnli"

// DefaultEndpoint is the hosted inference URL for DefaultModel.
const DefaultEndpoint = "https://api-inference.huggingface.co/models/" + DefaultModel

// ErrNoCandidates is returned when classification is requested without labels.
var ErrNoCandidates = errors.New("no candidate labels")

// ResponseError is returned for responses that are not a ranking.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("zero-shot endpoint returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	Endpoint    string
	Token       string
	HTTPClient  *http.Client
	RetryConfig retry.Config
}

func NewClient(endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		Endpoint:    endpoint,
		Token:       token,
		HTTPClient:  &http.Client{Timeout: 2 * time.Minute},
		RetryConfig: retry.DefaultConfig(),
	}
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// Classify ranks text against the candidate labels. With multiLabel each
// label is scored independently; otherwise the scores form one distribution.
func (c *Client) Classify(ctx context.Context, text string, candidates []string, multiLabel bool) (score.Source, error) {
	if len(candidates) == 0 {
		return score.Source{}, ErrNoCandidates
	}
	payload, err := json.Marshal(request{
		Inputs:     text,
		Parameters: parameters{CandidateLabels: candidates, MultiLabel: multiLabel},
	})
	if err != nil {
		return score.Source{}, fmt.Errorf("error encoding request: %w", err)
	}

	var body []byte
	err = retry.Execute(ctx, retry.Options{
		Config:       c.RetryConfig,
		ErrorChecker: retryable,
		Logger: func(attempt int, delay time.Duration, statusCode int, err error) {
			log.Warn().Int("Attempt", attempt+1).Dur("Delay", delay).Int("Status", statusCode).AnErr("Error", err).Msg("Retrying zero-shot request")
		},
		Name: "zero-shot",
	}, func(int) (int, error) {
		statusCode, responseBody, postErr := c.post(ctx, payload)
		body = responseBody
		return statusCode, postErr
	})
	if err != nil {
		return score.Source{}, err
	}
	return parseRanking(body)
}

func (c *Client) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		message := gjson.GetBytes(body, "error").String()
		if message == "" {
			message = string(body)
		}
		return resp.StatusCode, body, &ResponseError{StatusCode: resp.StatusCode, Message: message}
	}
	return resp.StatusCode, body, nil
}

// retryable retries transport errors, rate limiting and server errors, which
// include the endpoint still loading the model.
func retryable(err error, statusCode int) bool {
	if err == nil {
		return false
	}
	if statusCode == 0 {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// parseRanking reads {"labels": [...], "scores": [...]}, possibly wrapped in
// a one-element array.
func parseRanking(body []byte) (score.Source, error) {
	if !gjson.ValidBytes(body) {
		return score.Source{}, &ResponseError{StatusCode: http.StatusOK, Message: "invalid JSON"}
	}
	result := gjson.ParseBytes(body)
	if result.IsArray() {
		items := result.Array()
		if len(items) == 0 {
			return score.Source{}, &ResponseError{StatusCode: http.StatusOK, Message: "empty ranking"}
		}
		result = items[0]
	}
	if !result.Get("labels").IsArray() || !result.Get("scores").IsArray() {
		return score.Source{}, &ResponseError{StatusCode: http.StatusOK, Message: "response has no labels and scores"}
	}

	rawLabels := result.Get("labels").Array()
	rawScores := result.Get("scores").Array()
	labels := make([]string, len(rawLabels))
	for i, l := range rawLabels {
		labels[i] = l.String()
	}
	scores := make([]float64, len(rawScores))
	for i, s := range rawScores {
		scores[i] = s.Float()
	}
	return score.FromRankedPairs(labels, scores)
}

// Scorer ranks every text against a fixed candidate list.
type Scorer struct {
	Client     *Client
	Candidates []string
	MultiLabel bool
}

func (s *Scorer) Score(ctx context.Context, texts []string) ([]score.Source, error) {
	result := make([]score.Source, len(texts))
	for i, text := range texts {
		source, err := s.Client.Classify(ctx, text, s.Candidates, s.MultiLabel)
		if err != nil {
			return nil, err
		}
		result[i] = source
	}
	return result, nil
}
