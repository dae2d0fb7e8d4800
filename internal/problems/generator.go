package problems

import (
	"math/rand"
	"time"

	"github.com/mathquest/backend/internal/models"
)

// DefaultCount is the number of problems in a standard session.
const DefaultCount = 10

// operandRange bounds the two operands for a (difficulty, operation)
// pair. For division the two ranges bound the divisor and the intended
// quotient; the dividend is their product.
type operandRange struct {
	Min1, Max1 int
	Min2, Max2 int
}

// ranges widens every operation's operands as difficulty rises.
var ranges = map[models.Difficulty]map[models.Operation]operandRange{
	models.DifficultyBeginner: {
		models.OperationAdd: {1, 20, 1, 10},
		models.OperationSub: {1, 20, 1, 10},
		models.OperationMul: {1, 10, 1, 5},
		models.OperationDiv: {1, 5, 1, 5},
	},
	models.DifficultyIntermediate: {
		models.OperationAdd: {10, 100, 10, 50},
		models.OperationSub: {10, 100, 10, 50},
		models.OperationMul: {2, 12, 2, 10},
		models.OperationDiv: {2, 10, 2, 10},
	},
	models.DifficultyExpert: {
		models.OperationAdd: {100, 1000, 50, 500},
		models.OperationSub: {100, 1000, 50, 500},
		models.OperationMul: {10, 30, 5, 20},
		models.OperationDiv: {5, 20, 5, 20},
	},
}

var concreteOps = []models.Operation{
	models.OperationAdd,
	models.OperationSub,
	models.OperationMul,
	models.OperationDiv,
}

// Generate produces count problems for the difficulty/operation pair
// using a time-seeded source. Always succeeds for valid enum inputs.
func Generate(difficulty models.Difficulty, operation models.Operation, count int) []models.Problem {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return GenerateWithRand(rng, difficulty, operation, count)
}

// GenerateWithRand is Generate with an injected random source, for
// deterministic callers.
//
// Division is generated backwards: divisor and quotient are drawn from
// the range and multiplied to form the dividend, so every division is
// exact with no zero divisor. Subtraction operands are swapped when
// needed so the result is never negative. A "mixed" request picks one of
// the four concrete operations uniformly at random per problem.
func GenerateWithRand(rng *rand.Rand, difficulty models.Difficulty, operation models.Operation, count int) []models.Problem {
	out := make([]models.Problem, count)
	for i := 0; i < count; i++ {
		op := operation
		if op == models.OperationMixed {
			op = concreteOps[rng.Intn(len(concreteOps))]
		}
		out[i] = generateOne(rng, difficulty, op)
		out[i].ID = i + 1
	}
	return out
}

func generateOne(rng *rand.Rand, difficulty models.Difficulty, op models.Operation) models.Problem {
	r := ranges[difficulty][op]
	num1 := between(rng, r.Min1, r.Max1)
	num2 := between(rng, r.Min2, r.Max2)

	switch op {
	case models.OperationAdd:
		return models.Problem{Num1: num1, Num2: num2, Operation: op, CorrectAnswer: num1 + num2}
	case models.OperationSub:
		if num1 < num2 {
			num1, num2 = num2, num1
		}
		return models.Problem{Num1: num1, Num2: num2, Operation: op, CorrectAnswer: num1 - num2}
	case models.OperationMul:
		return models.Problem{Num1: num1, Num2: num2, Operation: op, CorrectAnswer: num1 * num2}
	case models.OperationDiv:
		divisor := num1
		quotient := num2
		return models.Problem{
			Num1:          divisor * quotient,
			Num2:          divisor,
			Operation:     op,
			CorrectAnswer: quotient,
		}
	}
	return models.Problem{}
}

// between returns a uniform int in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}
