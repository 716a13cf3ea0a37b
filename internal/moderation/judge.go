// Package moderation screens accepted messages after broadcast and
// escalates repeat offenders from warning to temporary ban to permanent
// ban. Classifier and store failures never produce a ban: there is no
// human review step, so the pipeline fails open to avoid false positives.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

// Verdict is the judge's decision for one message.
type Verdict struct {
	Flagged    bool
	Reason     string
	Categories []string
}

var askingForMoneyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)send\s+me\s+\d*\s*wld`),
	regexp.MustCompile(`(?i)give\s+me\s+\d*\s*wld`),
	regexp.MustCompile(`(?i)send\s+me\s+\d*\s*token`),
	regexp.MustCompile(`(?i)give\s+me\s+\d*\s*token`),
	regexp.MustCompile(`(?i)send\s+me\s+\d*\s*coin`),
	regexp.MustCompile(`(?i)give\s+me\s+\d*\s*coin`),
	regexp.MustCompile(`(?i)send\s+me\s+money`),
	regexp.MustCompile(`(?i)give\s+me\s+money`),
	regexp.MustCompile(`(?i)i\s+need\s+money`),
	regexp.MustCompile(`(?i)i\s+need\s+wld`),
	regexp.MustCompile(`(?i)i\s+need\s+token`),
	regexp.MustCompile(`(?i)can\s+you\s+send`),
	regexp.MustCompile(`(?i)please\s+send`),
	regexp.MustCompile(`(?i)donate\s+to\s+me`),
	regexp.MustCompile(`(?i)help\s+me\s+with\s+money`),
	regexp.MustCompile(`(?i)need\s+financial\s+help`),
}

const classifierPrompt = `You are a content moderator for a crypto chat platform. Analyze the following message and determine if it violates any rules.

Rules:
1. No harassment, threats, or personal attacks
2. No hate speech based on race, religion, gender, sexuality, etc.
3. No explicit sexual content
4. No spam or excessive repetition
5. No asking/begging for money/tokens (e.g., "send me WLD", "give me tokens", "I need money")
6. No promotion of scams or illegal activities
7. No doxxing or sharing personal information

Respond with a JSON object:
{
  "flagged": boolean,
  "reason": string | null,
  "category": string | null
}

If flagged=true, provide a brief reason and category. Categories: "harassment", "hate", "sexual", "spam", "asking for money", "scam", "doxx", "other"

Message to analyze:`

// Judge runs the two-stage moderation check: a local phrase heuristic for
// money begging, then an external text classifier.
type Judge struct {
	apiKey      string
	model       string
	endpointURL string
	httpClient  *http.Client
	// failOpen resolves classifier failures as not-flagged. Turning it
	// off makes an unreachable classifier retract every message until
	// it recovers.
	failOpen bool
}

func NewJudge(apiKey, model, endpointURL string, failOpen bool) *Judge {
	return &Judge{
		apiKey:      apiKey,
		model:       model,
		endpointURL: endpointURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		failOpen:    failOpen,
	}
}

// SetHTTPClient overrides the classifier transport. Used by tests.
func (j *Judge) SetHTTPClient(client *http.Client) {
	j.httpClient = client
}

// Moderate classifies already-broadcast text. Any failure, malformed
// response included, resolves to a not-flagged verdict.
func (j *Judge) Moderate(ctx context.Context, text string) Verdict {
	if detectAskingForMoney(text) {
		return Verdict{
			Flagged:    true,
			Reason:     "asking for money",
			Categories: []string{"asking for money"},
		}
	}

	result, err := j.classify(ctx, text)
	if err != nil {
		if j.failOpen {
			slog.WarnContext(ctx, "classifier unavailable, message not flagged", "error", err)
			return Verdict{}
		}
		slog.WarnContext(ctx, "classifier unavailable, flagging per fail-closed policy", "error", err)
		return Verdict{
			Flagged:    true,
			Reason:     "moderation unavailable",
			Categories: []string{"other"},
		}
	}
	if !result.Flagged {
		return Verdict{}
	}

	verdict := Verdict{Flagged: true, Reason: result.Reason}
	if verdict.Reason == "" {
		verdict.Reason = "policy violation"
	}
	if result.Category != "" {
		verdict.Categories = []string{result.Category}
	} else {
		verdict.Categories = []string{"other"}
	}
	return verdict
}

func detectAskingForMoney(text string) bool {
	for _, pattern := range askingForMoneyPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

type classifierResult struct {
	Flagged  bool   `json:"flagged"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (j *Judge) classify(ctx context.Context, text string) (classifierResult, error) {
	body, err := json.Marshal(map[string]any{
		"model": j.model,
		"messages": []map[string]string{
			{"role": "user", "content": fmt.Sprintf("%s\n\n%q", classifierPrompt, text)},
		},
		"max_completion_tokens": 100,
	})
	if err != nil {
		return classifierResult{}, fmt.Errorf("internal/moderation: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpointURL, bytes.NewReader(body))
	if err != nil {
		return classifierResult{}, fmt.Errorf("internal/moderation: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+j.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := j.httpClient.Do(req)
	if err != nil {
		return classifierResult{}, fmt.Errorf("internal/moderation: classifier request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return classifierResult{}, fmt.Errorf("internal/moderation: classifier returned %d", res.StatusCode)
	}

	var completion completionResponse
	if err := json.NewDecoder(res.Body).Decode(&completion); err != nil {
		return classifierResult{}, fmt.Errorf("internal/moderation: failed to decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return classifierResult{}, nil
	}

	var result classifierResult
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		// The model went off-script. Treat as clean rather than guessing.
		slog.Warn("unparseable classifier verdict", "content", completion.Choices[0].Message.Content)
		return classifierResult{}, nil
	}

	return result, nil
}
