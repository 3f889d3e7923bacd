package ai

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kdimtricp/vsearch/internal/models"
)

type ModelInfo struct {
	ID                  string `json:"modelId"`
	DisplayName         string `json:"displayName"`
	RequiresAccelerator bool   `json:"requiresAccelerator"`
	Loaded              bool   `json:"loaded"`
}

// Answer is a synthesized reply. NotAddressed reports that the transcript
// context did not contain the information the question asked for.
type Answer struct {
	Summary      string `json:"summary"`
	NotAddressed bool   `json:"notAddressed"`
	ModelID      string `json:"modelId"`
}

// Loader warms a model on the inference backend; loads can be slow.
type Loader interface {
	Load(ctx context.Context, modelID string) error
}

// LLMService is the process-wide model selector and answer synthesizer. The
// mutex guards the model table and the active id so a Select never exposes a
// torn value to a concurrent search; the load itself runs outside the lock.
// Switching models leaves the previous model's loaded flag set (lazy unload).
type LLMService struct {
	mu             sync.RWMutex
	client         *openai.Client
	models         map[string]*ModelInfo
	order          []string
	activeID       string
	hasAccelerator bool
	loader         Loader
}

func NewLLMService(baseURL, apiKey string, catalog []ModelInfo, hasAccelerator bool, loader Loader) *LLMService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	s := &LLMService{
		client:         openai.NewClientWithConfig(cfg),
		models:         make(map[string]*ModelInfo, len(catalog)),
		hasAccelerator: hasAccelerator,
	}
	for _, m := range catalog {
		clone := m
		s.models[m.ID] = &clone
		s.order = append(s.order, m.ID)
	}
	if loader == nil {
		loader = &warmupLoader{client: s.client}
	}
	s.loader = loader
	return s
}

// DetectAccelerator reports whether this host has inference hardware.
func DetectAccelerator() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

func (s *LLMService) List() ([]ModelInfo, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ModelInfo, 0, len(s.order))
	for _, id := range s.order {
		infos = append(infos, *s.models[id])
	}
	return infos, s.activeID, s.hasAccelerator
}

// Select loads the model and makes it the active one. The load happens outside
// the write lock; the swap at the end is atomic.
func (s *LLMService) Select(ctx context.Context, modelID string) error {
	s.mu.RLock()
	model, ok := s.models[modelID]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	if model.RequiresAccelerator && !s.hasAccelerator {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrModelUnavailable, modelID)
	}
	s.mu.RUnlock()

	log.Printf("Loading model %s", modelID)
	if err := s.loader.Load(ctx, modelID); err != nil {
		return &UpstreamError{Service: "llm", Err: fmt.Errorf("failed to load %s: %w", modelID, err)}
	}

	s.mu.Lock()
	s.models[modelID].Loaded = true
	s.activeID = modelID
	s.mu.Unlock()

	log.Printf("Active model is now %s", modelID)
	return nil
}

// Active returns the currently selected model id, if one is loaded.
func (s *LLMService) Active() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return "", false
	}
	model, ok := s.models[s.activeID]
	if !ok || !model.Loaded {
		return "", false
	}
	return s.activeID, true
}

// GenerateAnswer asks the active model to answer from the given transcript
// context only.
func (s *LLMService) GenerateAnswer(ctx context.Context, question string, segments []models.SearchResult) (Answer, error) {
	modelID, ok := s.Active()
	if !ok {
		return Answer{}, ErrModelUnavailable
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant analyzing video transcripts. " +
					"You always respond in the same language as the transcript you are analyzing, " +
					"regardless of the language of the question.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: answerPrompt(question, segments),
			},
		},
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		return Answer{}, &UpstreamError{Service: "llm", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Answer{}, &UpstreamError{Service: "llm", Err: fmt.Errorf("empty completion response")}
	}

	return parseAnswer(resp.Choices[0].Message.Content, modelID), nil
}

// GenerateSummary produces a short standalone summary of a full transcript.
func (s *LLMService) GenerateSummary(ctx context.Context, transcript string) (string, error) {
	modelID, ok := s.Active()
	if !ok {
		return "", ErrModelUnavailable
	}

	prompt := fmt.Sprintf(`You are an AI assistant tasked with summarizing a video transcript.
Here is the transcript:
%s
Please provide a concise summary of the main points in 2-3 sentences.`, transcript)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		return "", &UpstreamError{Service: "llm", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Service: "llm", Err: fmt.Errorf("empty completion response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func answerPrompt(question string, segments []models.SearchResult) string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	context := strings.Join(texts, " ")

	return fmt.Sprintf(`You are analyzing a video transcript to answer a question.
Based on the transcript below, provide a comprehensive answer.

CRITICAL LANGUAGE REQUIREMENT:
- You MUST write your answer in the SAME LANGUAGE as the transcript
- The user's question might be in a different language, but ALWAYS answer in the transcript's language

Transcript:
%s

Question: %s

You MUST format your response EXACTLY as follows:

SUMMARY:
[Write 2-3 sentences summarizing the answer IN THE SAME LANGUAGE AS THE TRANSCRIPT]

COMPLETENESS:
[State one of: "COMPLETE" if the transcript fully answers the question, "PARTIAL" if only some aspects are covered, or "NOT FOUND" if the transcript doesn't contain relevant information]

Remember:
- Start your response directly with "SUMMARY:" without any preamble
- Write your answer in the SAME LANGUAGE as the transcript above`, context, question)
}

var (
	thinkTags        = regexp.MustCompile(`(?s)<think>.*?</think>`)
	summarySection   = regexp.MustCompile(`(?is)SUMMARY:\s*\n?(.*?)(?:COMPLETENESS:|$)`)
	completenessLine = regexp.MustCompile(`(?is)COMPLETENESS:\s*\n?(.*?)(?:\n|$)`)
)

// parseAnswer extracts the SUMMARY/COMPLETENESS protocol out of a model reply,
// tolerating preambles, thinking tags and missing sections.
func parseAnswer(response, modelID string) Answer {
	response = strings.TrimSpace(thinkTags.ReplaceAllString(response, ""))

	if idx := strings.Index(response, "SUMMARY:"); idx != -1 {
		response = response[idx:]
	}

	answer := Answer{ModelID: modelID}

	if m := summarySection.FindStringSubmatch(response); m != nil {
		answer.Summary = strings.Join(strings.Fields(m[1]), " ")
	}
	if m := completenessLine.FindStringSubmatch(response); m != nil {
		completeness := strings.ToUpper(strings.TrimSpace(m[1]))
		answer.NotAddressed = strings.Contains(completeness, "NOT FOUND") || strings.Contains(completeness, "NOT_FOUND")
	}

	if answer.Summary == "" {
		firstPara := strings.TrimSpace(strings.SplitN(response, "\n\n", 2)[0])
		if firstPara != "" && !strings.HasPrefix(firstPara, "SUMMARY:") && !strings.HasPrefix(firstPara, "COMPLETENESS:") {
			answer.Summary = firstPara
		}
	}
	return answer
}

// warmupLoader forces the backend to pull the model into memory by issuing a
// minimal completion against it.
type warmupLoader struct {
	client *openai.Client
}

func (l *warmupLoader) Load(ctx context.Context, modelID string) error {
	_, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
		MaxTokens: 1,
	})
	return err
}
