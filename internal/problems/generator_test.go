package problems

import (
	"math/rand"
	"testing"

	"github.com/mathquest/backend/internal/models"
)

var allDifficulties = []models.Difficulty{
	models.DifficultyBeginner,
	models.DifficultyIntermediate,
	models.DifficultyExpert,
}

var allOperations = []models.Operation{
	models.OperationAdd,
	models.OperationSub,
	models.OperationMul,
	models.OperationDiv,
	models.OperationMixed,
}

func TestGenerateCountAndArithmetic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, diff := range allDifficulties {
		for _, op := range allOperations {
			problems := GenerateWithRand(rng, diff, op, DefaultCount)
			if len(problems) != DefaultCount {
				t.Fatalf("%s/%s: got %d problems, want %d", diff, op, len(problems), DefaultCount)
			}

			for i, p := range problems {
				if p.ID != i+1 {
					t.Errorf("%s/%s problem %d: ID = %d, want %d", diff, op, i, p.ID, i+1)
				}

				var want int
				switch p.Operation {
				case models.OperationAdd:
					want = p.Num1 + p.Num2
				case models.OperationSub:
					want = p.Num1 - p.Num2
				case models.OperationMul:
					want = p.Num1 * p.Num2
				case models.OperationDiv:
					if p.Num2 == 0 {
						t.Fatalf("%s: division by zero in %d ÷ %d", diff, p.Num1, p.Num2)
					}
					if p.Num1%p.Num2 != 0 {
						t.Errorf("%s: inexact division %d ÷ %d", diff, p.Num1, p.Num2)
					}
					want = p.Num1 / p.Num2
				default:
					t.Fatalf("%s/%s: generated problem has operation %q", diff, op, p.Operation)
				}

				if p.CorrectAnswer != want {
					t.Errorf("%s/%s: %d %s %d: answer = %d, want %d",
						diff, op, p.Num1, p.Operation.Symbol(), p.Num2, p.CorrectAnswer, want)
				}
			}
		}
	}
}

func TestGenerateSubtractionNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, diff := range allDifficulties {
		for i := 0; i < 50; i++ {
			for _, p := range GenerateWithRand(rng, diff, models.OperationSub, DefaultCount) {
				if p.Num1 < p.Num2 {
					t.Fatalf("%s: subtraction operands not swapped: %d < %d", diff, p.Num1, p.Num2)
				}
			}
		}
	}
}

func TestGenerateMixedUsesConcreteOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[models.Operation]bool{}

	for i := 0; i < 40; i++ {
		for _, p := range GenerateWithRand(rng, models.DifficultyBeginner, models.OperationMixed, DefaultCount) {
			if p.Operation == models.OperationMixed {
				t.Fatalf("mixed request produced a problem tagged mixed")
			}
			if p.Num1 == 0 && p.Num2 == 0 {
				t.Fatalf("mixed request produced a degenerate zero problem")
			}
			seen[p.Operation] = true
		}
	}

	for _, op := range concreteOps {
		if !seen[op] {
			t.Errorf("mixed never produced %s across 400 problems", op)
		}
	}
}

func TestGenerateOperandsWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	// Addition operands come straight from the range table.
	r := ranges[models.DifficultyBeginner][models.OperationAdd]
	for i := 0; i < 50; i++ {
		for _, p := range GenerateWithRand(rng, models.DifficultyBeginner, models.OperationAdd, DefaultCount) {
			if p.Num1 < r.Min1 || p.Num1 > r.Max1 {
				t.Fatalf("num1 %d outside [%d,%d]", p.Num1, r.Min1, r.Max1)
			}
			if p.Num2 < r.Min2 || p.Num2 > r.Max2 {
				t.Fatalf("num2 %d outside [%d,%d]", p.Num2, r.Min2, r.Max2)
			}
		}
	}
}
