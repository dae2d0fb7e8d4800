package feedback

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mathquest/backend/internal/models"
)

// Service turns a finished session into a short encouraging note. The
// note is cosmetic: any failure falls back to a canned message and never
// surfaces an error to the player.
type Service struct {
	llm LLMClient
}

func NewService() *Service {
	var llm LLMClient

	if os.Getenv("MOCK_FEEDBACK") == "true" || os.Getenv("ANTHROPIC_API_KEY") == "" {
		llm = NewMockClient()
		log.Println("[feedback] using mock client")
	} else {
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-3-5-haiku-latest"
		}
		llm = NewAPIClient(model)
		log.Println("[feedback] using Anthropic API:", model)
	}

	return &Service{llm: llm}
}

func NewServiceWithClient(llm LLMClient) *Service {
	return &Service{llm: llm}
}

// ForSession returns feedback for a finished session. Never fails: LLM
// errors and empty responses degrade to a canned message for the score
// band.
func (s *Service) ForSession(ctx context.Context, result models.SessionResult, difficulty models.Difficulty, operation models.Operation) string {
	text, err := s.llm.Generate(ctx, systemPrompt, buildUserPrompt(result, difficulty, operation))
	if err != nil {
		log.Printf("[feedback] generation failed, using fallback: %v", err)
		return fallbackMessage(result)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallbackMessage(result)
	}
	return text
}

const systemPrompt = `You are a warm, upbeat math coach for children aged 6-12.
Write a short feedback message (2-3 sentences, max 60 words) about the
practice round described by the user. Celebrate what went well, then give
one concrete, gentle tip based on the problems they missed. Never shame,
never mention scores as percentages, and never use difficult vocabulary.`

func buildUserPrompt(result models.SessionResult, difficulty models.Difficulty, operation models.Operation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Practice round: %s %s.\n", difficulty, operation)
	fmt.Fprintf(&b, "Answered %d of %d correctly.\n", result.Score, result.TotalQuestions)

	var missed []string
	for _, p := range result.History {
		if !p.IsCorrect {
			missed = append(missed, fmt.Sprintf("%d %s %d = %d (they answered %d)",
				p.Num1, p.Operation.Symbol(), p.Num2, p.CorrectAnswer, p.UserAnswer))
		}
	}
	if len(missed) == 0 {
		b.WriteString("They missed nothing. Perfect round!\n")
	} else {
		b.WriteString("Problems they missed:\n")
		for _, m := range missed {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	return b.String()
}

// fallbackMessage picks a canned note by score band so a dead LLM still
// produces something friendly.
func fallbackMessage(result models.SessionResult) string {
	if result.TotalQuestions == 0 {
		return "Nice warm-up! Ready for another round?"
	}
	switch {
	case result.Score == result.TotalQuestions:
		return fmt.Sprintf("Perfect round — all %d correct! You're on fire. Try a harder level next time!", result.TotalQuestions)
	case result.Score*2 >= result.TotalQuestions:
		return fmt.Sprintf("Great job! You got %d out of %d. A little more practice and you'll have them all!", result.Score, result.TotalQuestions)
	default:
		return fmt.Sprintf("Good effort — %d out of %d! Every round makes you stronger. Let's try again!", result.Score, result.TotalQuestions)
	}
}
