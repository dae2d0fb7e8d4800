package quiz

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mathquest/backend/internal/models"
)

// Phase is the lifecycle state of a quiz session.
type Phase string

const (
	// PhaseActive means a question is presented and accepting input.
	PhaseActive Phase = "active"
	// PhaseTimedOut is terminal until an explicit restart.
	PhaseTimedOut Phase = "timed_out"
	// PhaseFinished is terminal; the session result has been emitted.
	PhaseFinished Phase = "finished"
)

// DefaultDuration is the session countdown budget.
const DefaultDuration = 120 * time.Second

// FeedbackDelay is how long a browser client should show per-answer
// feedback before the next question appears. It is a presentation
// affordance only: the controller itself advances immediately and never
// lets this delay affect scoring.
const FeedbackDelay = 1500 * time.Millisecond

var (
	ErrNotActive       = errors.New("session is not accepting answers")
	ErrSkipUnavailable = errors.New("skip requires one failed attempt first")
	ErrNotTimedOut     = errors.New("restart is only valid after a timeout")
)

// Session drives a fixed problem sequence through presentation, grading
// (with a second-attempt grace), skip, and timeout. The submission path
// and the countdown tick are the only two writers; both are serialized
// through mu so a tick firing exactly as the last question is graded
// cannot corrupt the phase.
type Session struct {
	ID         string
	UserID     int64
	Difficulty models.Difficulty
	Operation  models.Operation

	mu            sync.Mutex
	problems      []models.Problem
	phase         Phase
	currentIndex  int
	attempts      int // wrong attempts on the current question: 0 or 1
	lastWrong     int // last parsed wrong answer, used by skip
	history       []models.AnsweredProblem
	remainingSecs int
	durationSecs  int
	result        *models.SessionResult
	cancelTimer   context.CancelFunc
	createdAt     time.Time
	endedAt       time.Time
}

// SubmitOutcome describes what one submission did to the session.
type SubmitOutcome struct {
	// Accepted is false when the input was empty or non-numeric; such
	// input is ignored rather than rejected with an error.
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
	// Resolved is true when the question was appended to history
	// (correct answer or second wrong attempt) and the session advanced.
	Resolved bool `json:"resolved"`
	// SkipAvailable is true while the current question has one failed
	// attempt and may be skipped.
	SkipAvailable bool `json:"skip_available"`
	Finished      bool `json:"finished"`
}

// NewSession creates an active session over the given problem sequence.
// The countdown does not run until StartCountdown is called.
func NewSession(id string, userID int64, difficulty models.Difficulty, operation models.Operation, problems []models.Problem, duration time.Duration) *Session {
	if duration <= 0 {
		duration = DefaultDuration
	}
	secs := int(duration / time.Second)
	return &Session{
		ID:            id,
		UserID:        userID,
		Difficulty:    difficulty,
		Operation:     operation,
		problems:      problems,
		phase:         PhaseActive,
		remainingSecs: secs,
		durationSecs:  secs,
		createdAt:     time.Now(),
	}
}

// StartCountdown launches the once-per-second countdown goroutine. The
// goroutine exits when the session leaves PhaseActive or ctx is
// cancelled, so abandoning a session never leaks a timer.
func (s *Session) StartCountdown(ctx context.Context) {
	s.mu.Lock()
	timerCtx, cancel := context.WithCancel(ctx)
	s.cancelTimer = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-timerCtx.Done():
				return
			case <-ticker.C:
				if s.tick() {
					return
				}
			}
		}
	}()
}

// tick consumes one second of the budget. Returns true when the
// countdown goroutine should stop.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return true
	}
	s.remainingSecs--
	if s.remainingSecs > 0 {
		return false
	}

	// Timeout discards the in-flight question: any recorded wrong
	// attempt on it is dropped and it is not appended to history.
	s.remainingSecs = 0
	s.attempts = 0
	s.lastWrong = 0
	s.phase = PhaseTimedOut
	s.endedAt = time.Now()
	return true
}

// SubmitAnswer grades raw input against the current question.
// Empty or non-numeric input is silently ignored. A first wrong answer
// keeps the question open with a skip affordance; a second wrong answer
// resolves it as incorrect with the second submission recorded.
func (s *Session) SubmitAnswer(raw string) (SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return SubmitOutcome{}, ErrNotActive
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return SubmitOutcome{SkipAvailable: s.attempts > 0}, nil
	}

	problem := s.problems[s.currentIndex]
	if value == problem.CorrectAnswer {
		s.appendLocked(problem, value, true)
		finished := s.advanceLocked()
		return SubmitOutcome{Accepted: true, Correct: true, Resolved: true, Finished: finished}, nil
	}

	if s.attempts == 0 {
		s.attempts = 1
		s.lastWrong = value
		return SubmitOutcome{Accepted: true, SkipAvailable: true}, nil
	}

	s.appendLocked(problem, value, false)
	finished := s.advanceLocked()
	return SubmitOutcome{Accepted: true, Resolved: true, Finished: finished}, nil
}

// Skip resolves the current question as incorrect, recording the last
// wrong submission (or 0 if it did not parse). Only valid after exactly
// one failed attempt.
func (s *Session) Skip() (SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return SubmitOutcome{}, ErrNotActive
	}
	if s.attempts == 0 {
		return SubmitOutcome{}, ErrSkipUnavailable
	}

	problem := s.problems[s.currentIndex]
	s.appendLocked(problem, s.lastWrong, false)
	finished := s.advanceLocked()
	return SubmitOutcome{Accepted: true, Resolved: true, Finished: finished}, nil
}

// RestartAfterTimeout resets all session state and reuses the same
// problem sequence. Valid only from PhaseTimedOut; the caller must start
// a new countdown afterwards.
func (s *Session) RestartAfterTimeout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseTimedOut {
		return ErrNotTimedOut
	}
	s.currentIndex = 0
	s.attempts = 0
	s.lastWrong = 0
	s.history = nil
	s.result = nil
	s.remainingSecs = s.durationSecs
	s.phase = PhaseActive
	s.endedAt = time.Time{}
	return nil
}

// Abandon cancels the countdown without emitting a result. In-progress
// state is discarded, never persisted; the registry drops the session
// right after, so no phase transition is observable.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.endedAt = time.Now()
}

func (s *Session) appendLocked(p models.Problem, userAnswer int, correct bool) {
	s.history = append(s.history, models.AnsweredProblem{
		Problem:    p,
		UserAnswer: userAnswer,
		IsCorrect:  correct,
	})
	s.attempts = 0
	s.lastWrong = 0
}

// advanceLocked moves to the next question or completes the session.
// Returns true when the session finished.
func (s *Session) advanceLocked() bool {
	if s.currentIndex < len(s.problems)-1 {
		s.currentIndex++
		return false
	}

	score := 0
	for _, h := range s.history {
		if h.IsCorrect {
			score++
		}
	}
	s.result = &models.SessionResult{
		Score:          score,
		TotalQuestions: len(s.problems),
		History:        append([]models.AnsweredProblem(nil), s.history...),
	}
	s.phase = PhaseFinished
	s.endedAt = time.Now()
	s.stopTimerLocked()
	return true
}

func (s *Session) stopTimerLocked() {
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
}

// Result returns the emitted session result, or nil before completion.
func (s *Session) Result() *models.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// View is a read snapshot of the session for the API. The current
// problem is exposed without its answer.
type View struct {
	ID               string             `json:"id"`
	Phase            Phase              `json:"phase"`
	Difficulty       models.Difficulty  `json:"difficulty"`
	Operation        models.Operation   `json:"operation"`
	CurrentIndex     int                `json:"current_index"`
	TotalQuestions   int                `json:"total_questions"`
	CurrentProblem   *models.Problem    `json:"current_problem,omitempty"`
	SkipAvailable    bool               `json:"skip_available"`
	RemainingSeconds int                `json:"remaining_seconds"`
	FeedbackDelayMs  int                `json:"feedback_delay_ms"`
	Result           *models.SessionResult `json:"result,omitempty"`
}

// Snapshot returns the current view under the session lock.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:               s.ID,
		Phase:            s.phase,
		Difficulty:       s.Difficulty,
		Operation:        s.Operation,
		CurrentIndex:     s.currentIndex,
		TotalQuestions:   len(s.problems),
		SkipAvailable:    s.attempts > 0,
		RemainingSeconds: s.remainingSecs,
		FeedbackDelayMs:  int(FeedbackDelay / time.Millisecond),
		Result:           s.result,
	}
	if s.phase == PhaseActive {
		p := s.problems[s.currentIndex]
		p.CorrectAnswer = 0 // never leaves the server while the question is live
		v.CurrentProblem = &p
	}
	return v
}

// Done reports whether the session is in a terminal phase and idle for
// longer than age, making it eligible for reaping.
func (s *Session) Done(age time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseActive {
		return false
	}
	return !s.endedAt.IsZero() && time.Since(s.endedAt) > age
}
