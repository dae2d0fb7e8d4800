package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mathquest/backend/internal/models"
)

type stubClient struct {
	text string
	err  error
	// captured prompts for assertions
	systemPrompt string
	userPrompt   string
}

func (s *stubClient) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.systemPrompt = systemPrompt
	s.userPrompt = userPrompt
	return s.text, s.err
}

func sampleResult() models.SessionResult {
	return models.SessionResult{
		Score:          8,
		TotalQuestions: 10,
		History: []models.AnsweredProblem{
			{
				Problem:    models.Problem{ID: 1, Num1: 7, Num2: 5, Operation: models.OperationAdd, CorrectAnswer: 12},
				UserAnswer: 12,
				IsCorrect:  true,
			},
			{
				Problem:    models.Problem{ID: 2, Num1: 9, Num2: 6, Operation: models.OperationMul, CorrectAnswer: 54},
				UserAnswer: 45,
				IsCorrect:  false,
			},
		},
	}
}

func TestForSessionUsesClientText(t *testing.T) {
	client := &stubClient{text: "  Way to go, champ!  "}
	svc := NewServiceWithClient(client)

	got := svc.ForSession(context.Background(), sampleResult(), models.DifficultyBeginner, models.OperationAdd)
	if got != "Way to go, champ!" {
		t.Errorf("ForSession = %q, want trimmed client text", got)
	}
}

func TestForSessionPromptIncludesMisses(t *testing.T) {
	client := &stubClient{text: "ok"}
	svc := NewServiceWithClient(client)

	svc.ForSession(context.Background(), sampleResult(), models.DifficultyIntermediate, models.OperationMixed)

	if !strings.Contains(client.userPrompt, "9 × 6 = 54 (they answered 45)") {
		t.Errorf("prompt missing wrong answer detail:\n%s", client.userPrompt)
	}
	if !strings.Contains(client.userPrompt, "8 of 10") {
		t.Errorf("prompt missing score:\n%s", client.userPrompt)
	}
	if strings.Contains(client.userPrompt, "7 + 5") {
		t.Errorf("prompt should not list correctly answered problems:\n%s", client.userPrompt)
	}
}

func TestForSessionFallsBackOnError(t *testing.T) {
	client := &stubClient{err: errors.New("api down")}
	svc := NewServiceWithClient(client)

	got := svc.ForSession(context.Background(), sampleResult(), models.DifficultyBeginner, models.OperationAdd)
	if got == "" {
		t.Fatal("expected canned fallback, got empty string")
	}
	if !strings.Contains(got, "8 out of 10") {
		t.Errorf("fallback = %q, want score band message", got)
	}
}

func TestForSessionFallsBackOnEmptyResponse(t *testing.T) {
	client := &stubClient{text: "   "}
	svc := NewServiceWithClient(client)

	got := svc.ForSession(context.Background(), sampleResult(), models.DifficultyBeginner, models.OperationAdd)
	if got == "" {
		t.Fatal("expected canned fallback, got empty string")
	}
}

func TestFallbackBands(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		total   int
		wantSub string
	}{
		{"perfect", 10, 10, "Perfect round"},
		{"majority", 6, 10, "Great job"},
		{"struggling", 2, 10, "Good effort"},
		{"empty session", 0, 0, "warm-up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fallbackMessage(models.SessionResult{Score: tt.score, TotalQuestions: tt.total})
			if !strings.Contains(got, tt.wantSub) {
				t.Errorf("fallbackMessage(%d/%d) = %q, want substring %q", tt.score, tt.total, got, tt.wantSub)
			}
		})
	}
}
