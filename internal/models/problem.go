package models

// Difficulty selects the operand ranges used when generating problems.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyExpert       Difficulty = "expert"
)

// Valid reports whether d is a known difficulty level.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyExpert:
		return true
	}
	return false
}

// Operation is the arithmetic operation of a problem. OperationMixed is
// only a generation request value: generated problems always carry one of
// the four concrete operations.
type Operation string

const (
	OperationAdd   Operation = "add"
	OperationSub   Operation = "sub"
	OperationMul   Operation = "mul"
	OperationDiv   Operation = "div"
	OperationMixed Operation = "mixed"
)

// Valid reports whether op is a known operation, including mixed.
func (op Operation) Valid() bool {
	switch op {
	case OperationAdd, OperationSub, OperationMul, OperationDiv, OperationMixed:
		return true
	}
	return false
}

// Symbol returns the display symbol for the operation.
func (op Operation) Symbol() string {
	switch op {
	case OperationAdd:
		return "+"
	case OperationSub:
		return "−"
	case OperationMul:
		return "×"
	case OperationDiv:
		return "÷"
	}
	return "?"
}

// Problem is a single arithmetic question. Immutable once generated;
// CorrectAnswer is computed at generation time.
type Problem struct {
	ID            int       `json:"id"`
	Num1          int       `json:"num1"`
	Num2          int       `json:"num2"`
	Operation     Operation `json:"operation"`
	CorrectAnswer int       `json:"-"`
}

// AnsweredProblem is a problem the player has resolved, by answering
// correctly, exhausting both attempts, or skipping. Immutable once
// appended to session history.
type AnsweredProblem struct {
	Problem
	UserAnswer int  `json:"user_answer"`
	IsCorrect  bool `json:"is_correct"`
}

// SessionResult is the outcome of one completed quiz session.
// Created exactly once, when the last question resolves.
type SessionResult struct {
	Score          int               `json:"score"`
	TotalQuestions int               `json:"total_questions"`
	History        []AnsweredProblem `json:"history"`
}
