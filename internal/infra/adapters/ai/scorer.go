package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

// Compile-time checks
var (
	_ adapter.Scorer = (*Service)(nil)
	_ adapter.Tailor = (*Service)(nil)
)

// ChatClient is the provider-level surface: one system+user exchange, one
// text reply. OpenAI and Gemini clients implement it.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Service turns a ChatClient into the scoring and tailoring ports. Tailored
// application documents land in outputDir, one markdown file per job.
type Service struct {
	chat      ChatClient
	outputDir string
}

func NewService(chat ChatClient, outputDir string) *Service {
	return &Service{chat: chat, outputDir: outputDir}
}

const scoreSystemPrompt = `You are an experienced technical recruiter. Judge how well a job posting fits a candidate profile.
Respond with a single JSON object: {"score": <integer 0-100>, "reason": "<one sentence>"}. No other text.`

func (s *Service) Score(ctx context.Context, job *model.Job, profile adapter.Profile) (adapter.Score, error) {
	reply, err := s.chat.Chat(ctx, scoreSystemPrompt, scoreUserPrompt(job, profile))
	if err != nil {
		return adapter.Score{}, err
	}
	return parseScore(reply)
}

func scoreUserPrompt(job *model.Job, profile adapter.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate profile:\n%s\n", profile.Summary)
	if profile.TargetRole != "" {
		fmt.Fprintf(&b, "Target role: %s\n", profile.TargetRole)
	}
	if len(profile.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(profile.Skills, ", "))
	}
	if profile.Experience != "" {
		fmt.Fprintf(&b, "Experience:\n%s\n", profile.Experience)
	}
	fmt.Fprintf(&b, "\nJob posting:\nTitle: %s\nCompany: %s\nLocation: %s\n", job.Title, job.Company, job.Location)
	if job.Description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", truncate(job.Description, 6000))
	}
	return b.String()
}

// parseScore extracts the JSON verdict from a model reply, tolerating code
// fences and surrounding prose. The score is clamped to 0-100.
func parseScore(reply string) (adapter.Score, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return adapter.Score{}, fmt.Errorf("no JSON object in reply: %q", truncate(reply, 120))
	}

	var payload struct {
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return adapter.Score{}, fmt.Errorf("parse score reply: %w", err)
	}
	if payload.Score < 0 {
		payload.Score = 0
	}
	if payload.Score > 100 {
		payload.Score = 100
	}
	return adapter.Score{Value: payload.Score, Reason: payload.Reason}, nil
}

const tailorSystemPrompt = `You are a career assistant. Write a short, specific cover note (under 250 words) tailoring the candidate's experience to the job posting. Plain prose, no placeholders.`

func (s *Service) Generate(ctx context.Context, job *model.Job, profile adapter.Profile) error {
	reply, err := s.chat.Chat(ctx, tailorSystemPrompt, scoreUserPrompt(job, profile))
	if err != nil {
		return err
	}
	if s.outputDir == "" {
		return nil
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.outputDir, documentName(job))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", job.Title)
	if job.Company != "" {
		fmt.Fprintf(&b, "**Company:** %s\n\n", job.Company)
	}
	if job.JobURL != "" {
		fmt.Fprintf(&b, "**Posting:** %s\n\n", job.JobURL)
	}
	if job.SuitabilityScore != nil {
		fmt.Fprintf(&b, "**Suitability:** %d/100", *job.SuitabilityScore)
		if job.SuitabilityReason != "" {
			fmt.Fprintf(&b, " (%s)", job.SuitabilityReason)
		}
		b.WriteString("\n\n")
	}
	b.WriteString("## Cover note\n\n")
	b.WriteString(strings.TrimSpace(reply))
	b.WriteString("\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func documentName(job *model.Job) string {
	base := job.Company + "-" + job.Title
	if job.Company == "" {
		base = job.Title
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = job.ID
	}
	return name + ".md"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
