package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/jonathan/applypilot/internal/schemas"
	"github.com/jonathan/applypilot/internal/types"
)

// Scorer is the abstraction over the external ranking/matching model.
type Scorer interface {
	// RankResumes scores resumes against a job context, best first.
	RankResumes(ctx context.Context, jobContext string, resumes []types.Resume) ([]types.ResumeScore, error)
	// SummarizeJob produces a lightweight job-context summary from page text.
	SummarizeJob(ctx context.Context, pageText string) (string, error)
	// ProposeActions asks the model for additional fill actions for fields
	// the planner could not map directly. The output is schema-validated and
	// still passes the planner's blocklist filter before being merged.
	ProposeActions(ctx context.Context, fields []types.FieldCandidate, profile *types.Profile) ([]types.FillAction, error)
	// Close releases any resources held by the client
	Close() error
}

// GeminiScorer implements Scorer for Google Gemini
type GeminiScorer struct {
	client *genai.Client
	config *Config
}

// NewGeminiScorer creates a new Gemini-backed scorer
func NewGeminiScorer(ctx context.Context, config *Config, apiKey string) (*GeminiScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiScorer{client: client, config: config}, nil
}

// RankResumes scores each resume concurrently and returns the scores in
// descending order of score.
func (s *GeminiScorer) RankResumes(ctx context.Context, jobContext string, resumes []types.Resume) ([]types.ResumeScore, error) {
	if len(resumes) == 0 {
		return nil, nil
	}

	scores := make([]types.ResumeScore, len(resumes))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range resumes {
		g.Go(func() error {
			score, err := s.scoreResume(gCtx, jobContext, &resumes[i])
			if err != nil {
				return err
			}
			mu.Lock()
			scores[i] = score
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to rank resumes: %w", err)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

// scoreResume asks the model for a single 0-1 relevance score with a reason.
func (s *GeminiScorer) scoreResume(ctx context.Context, jobContext string, resume *types.Resume) (types.ResumeScore, error) {
	prompt := fmt.Sprintf(`Score how well this resume matches the job described below.
Respond with JSON only: {"score": <0.0-1.0>, "reason": "<one sentence>"}

Job context:
%s

Resume (%s):
%s`, jobContext, resume.Name, truncate(resume.Content, 8000))

	text, err := s.generateJSON(ctx, prompt, TierLite)
	if err != nil {
		return types.ResumeScore{}, err
	}

	var parsed struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return types.ResumeScore{}, fmt.Errorf("failed to parse score response: %w", err)
	}
	if parsed.Score < 0 {
		parsed.Score = 0
	}
	if parsed.Score > 1 {
		parsed.Score = 1
	}
	return types.ResumeScore{ResumeID: resume.ID, Score: parsed.Score, Notes: parsed.Reason}, nil
}

// SummarizeJob produces a short plain-text summary of the posting.
func (s *GeminiScorer) SummarizeJob(ctx context.Context, pageText string) (string, error) {
	prompt := fmt.Sprintf(`Summarize this job posting in 3-4 plain sentences covering role,
required skills, and seniority. No markdown.

%s`, truncate(pageText, 12000))

	return s.generateContent(ctx, prompt, TierLite)
}

// ProposeActions returns model-suggested fill actions. The raw JSON is
// validated against the proposed-actions schema before unmarshaling; invalid
// output is rejected wholesale rather than partially trusted.
func (s *GeminiScorer) ProposeActions(ctx context.Context, fields []types.FieldCandidate, profile *types.Profile) ([]types.FillAction, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field candidates: %w", err)
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	prompt := fmt.Sprintf(`Given these discovered form fields and this applicant profile, propose
fill actions for fields that can be answered from the profile. Do NOT answer
demographic, veteran, disability, or other legally sensitive questions.
Respond with JSON only, an array of:
{"target": {"field_id": "", "label": "", "resolution_handle": ""},
 "operation": "fill|select|check|uncheck|click|skip",
 "value": "", "confidence": <0.0-1.0>}

Fields:
%s

Profile:
%s`, fieldsJSON, profileJSON)

	text, err := s.generateJSON(ctx, prompt, TierStandard)
	if err != nil {
		return nil, err
	}

	if err := schemas.ValidateProposedActions(text); err != nil {
		return nil, fmt.Errorf("model proposed invalid actions: %w", err)
	}

	var actions []types.FillAction
	if err := json.Unmarshal([]byte(text), &actions); err != nil {
		return nil, fmt.Errorf("failed to parse proposed actions: %w", err)
	}
	return actions, nil
}

// Close releases resources held by the client
func (s *GeminiScorer) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// generateContent generates text content using the specified model tier
func (s *GeminiScorer) generateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := s.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	model := s.client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractTextFromResponse(resp)
}

// generateJSON generates JSON content using the specified model tier
func (s *GeminiScorer) generateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := s.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	model := s.client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// truncate caps prompt payloads so a pathological page cannot blow the context.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
