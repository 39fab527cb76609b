package game

import (
	"errors"
	"fmt"
	"sync"
)

// Phase is the match state machine's position.
type Phase string

const (
	PhaseWaitingToss  Phase = "waiting_toss"
	PhaseInnings1     Phase = "innings_1"
	PhaseInningsBreak Phase = "innings_break"
	PhaseInnings2     Phase = "innings_2"
	PhaseFinished     Phase = "finished"
)

// TossChoice is what the toss winner elects to do.
type TossChoice string

const (
	ChooseBat  TossChoice = "bat"
	ChooseBowl TossChoice = "bowl"
)

var (
	ErrNotTossWinner  = errors.New("only the toss winner may choose")
	ErrBadTossChoice  = errors.New("choice must be bat or bowl")
	ErrWrongPhase     = errors.New("not valid in this match phase")
	ErrNotYourRole    = errors.New("participant does not hold this role")
	ErrResultResolved = errors.New("this ball's result is already applied")
)

// Session is the authoritative match state machine for one room: toss,
// two innings, role assignment, and the per-ball resolve cycle. Participants
// are referred to by index 0/1; the room layer maps indexes to identities.
type Session struct {
	mu sync.Mutex

	Overs           int
	Phase           Phase
	CurrentInnings  int
	TossWinnerIndex int
	TossChoice      TossChoice

	BatterIndex int
	BowlerIndex int

	innings1 InningsState
	innings2 InningsState

	firstBatterIdx int
	firstBowlerIdx int

	// At-most-one-outcome-per-ball guard: set when a ball is launched,
	// cleared when its outcome is applied and the next ball is requested.
	resultPending bool
}

// NewSession creates a match of the given overs, waiting for the toss.
func NewSession(overs int) *Session {
	return &Session{
		Overs:           overs,
		Phase:           PhaseWaitingToss,
		CurrentInnings:  1,
		TossWinnerIndex: -1,
		BatterIndex:     -1,
		BowlerIndex:     -1,
	}
}

func (s *Session) current() *InningsState {
	if s.CurrentInnings == 1 {
		return &s.innings1
	}
	return &s.innings2
}

// PerformToss flips a fair coin and records the winner's index.
func (s *Session) PerformToss(rng *RNG) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rng.Float64() < 0.5 {
		s.TossWinnerIndex = 0
	} else {
		s.TossWinnerIndex = 1
	}
	return s.TossWinnerIndex
}

// ApplyTossChoice fixes the innings-1 roles from the winner's election and
// starts the first innings. Only the toss winner's index is accepted.
func (s *Session) ApplyTossChoice(fromIndex int, choice TossChoice) (batterIdx, bowlerIdx int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseWaitingToss {
		return 0, 0, ErrWrongPhase
	}
	if fromIndex != s.TossWinnerIndex {
		return 0, 0, ErrNotTossWinner
	}
	if choice != ChooseBat && choice != ChooseBowl {
		return 0, 0, ErrBadTossChoice
	}

	loserIdx := 1 - s.TossWinnerIndex
	if choice == ChooseBat {
		batterIdx, bowlerIdx = s.TossWinnerIndex, loserIdx
	} else {
		batterIdx, bowlerIdx = loserIdx, s.TossWinnerIndex
	}

	s.TossChoice = choice
	s.BatterIndex = batterIdx
	s.BowlerIndex = bowlerIdx
	s.firstBatterIdx = batterIdx
	s.firstBowlerIdx = bowlerIdx
	s.Phase = PhaseInnings1

	return batterIdx, bowlerIdx, nil
}

// NewBall opens the next delivery: clears the pending-outcome guard and
// returns the ball number and the current scoreboard.
func (s *Session) NewBall() (int, Score) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resultPending = false
	return s.current().BallsFaced + 1, s.scoreLocked()
}

// LaunchDelivery validates the bowler's role and solves the delivery
// trajectory from the submitted parameters.
func (s *Session) LaunchDelivery(fromIndex int, line, length, speed float64) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseInnings1 && s.Phase != PhaseInnings2 {
		return Delivery{}, ErrWrongPhase
	}
	if fromIndex != s.BowlerIndex {
		return Delivery{}, ErrNotYourRole
	}

	return NewDelivery(line, length, speed), nil
}

// ApplyBallResult folds exactly one outcome into the current innings. A
// second report for the same ball returns ErrResultResolved and mutates
// nothing.
func (s *Session) ApplyBallResult(fromIndex int, o BallOutcome) (Score, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Phase != PhaseInnings1 && s.Phase != PhaseInnings2 {
		return Score{}, false, ErrWrongPhase
	}
	if fromIndex != s.BatterIndex {
		return Score{}, false, ErrNotYourRole
	}
	if s.resultPending {
		return Score{}, false, ErrResultResolved
	}
	s.resultPending = true

	*s.current() = ApplyOutcome(*s.current(), o)

	over := s.current().IsOver(s.Overs)
	return s.scoreLocked(), over, nil
}

// StartSecondInnings captures the first-innings summary, derives the chase
// target (runs + 1), swaps the roles and enters the break.
func (s *Session) StartSecondInnings() (InningsSummary, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.summaryLocked()

	s.CurrentInnings = 2
	s.innings2.Target = summary.Runs + 1
	s.BatterIndex = s.firstBowlerIdx
	s.BowlerIndex = s.firstBatterIdx
	s.Phase = PhaseInningsBreak

	return summary, s.innings2.Target
}

// BeginInnings2 moves from the break into live play.
func (s *Session) BeginInnings2() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase == PhaseInningsBreak {
		s.Phase = PhaseInnings2
	}
}

// Finish marks the match terminal.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = PhaseFinished
}

// Score returns the live scoreboard for the current innings.
func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() Score {
	st := s.current()
	return Score{
		Runs:           st.Runs,
		Wickets:        st.Wickets,
		Overs:          st.Overs(),
		Fours:          st.Fours,
		Sixes:          st.Sixes,
		Wides:          st.Wides,
		Extras:         st.Extras,
		BatsmanRuns:    st.BatsmanRuns,
		BatsmanBalls:   st.BatsmanBalls,
		Target:         st.Target,
		LastBallResult: st.LastBallResult,
		Innings:        s.CurrentInnings,
	}
}

// Summary digests the current innings.
func (s *Session) Summary() InningsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() InningsSummary {
	st := s.current()
	return InningsSummary{
		Runs:          st.Runs,
		Wickets:       st.Wickets,
		Overs:         st.Overs(),
		RunRate:       st.RunRate(),
		Fours:         st.Fours,
		Sixes:         st.Sixes,
		Balls:         st.BallsFaced,
		Innings:       s.CurrentInnings,
		BowlerFigures: st.BowlerFigures(),
		BowlerOvers:   st.BowlerOvers(),
		BowlerEconomy: st.BowlerEconomy(),
		BowlerMaidens: st.BowlerMaidens,
	}
}

// Roles returns the current batter and bowler indexes.
func (s *Session) Roles() (batterIdx, bowlerIdx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.BatterIndex, s.BowlerIndex
}

// CurrentPhase returns the state machine's position.
func (s *Session) CurrentPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Phase
}

// BallsFaced in the current innings.
func (s *Session) BallsFaced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().BallsFaced
}

// InningsNumber returns which innings is live.
func (s *Session) InningsNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CurrentInnings
}

// MatchResult is the immutable final summary of a finished match.
type MatchResult struct {
	Headline string         `json:"headline"`
	Innings1 InningsSummary `json:"innings1"`
	Innings2 InningsSummary `json:"innings2"`
}

// Result computes the headline and both innings digests. The chasing side
// reaching its target wins by wickets in hand; level scores tie; otherwise
// the defending side wins by the run margin.
func (s *Session) Result(player0Name, player1Name string) MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	i1, i2 := s.innings1, s.innings2

	names := [2]string{player0Name, player1Name}
	i1Batter := names[s.firstBatterIdx]
	i2Batter := names[1-s.firstBatterIdx]

	var headline string
	switch {
	case i2.Runs >= i1.Runs+1:
		wktsLeft := 10 - i2.Wickets
		headline = fmt.Sprintf("%s wins by %d wicket%s!", i2Batter, wktsLeft, plural(wktsLeft))
	case i2.Runs == i1.Runs:
		headline = "Match Tied!"
	default:
		margin := i1.Runs - i2.Runs
		headline = fmt.Sprintf("%s wins by %d run%s!", i1Batter, margin, plural(margin))
	}

	return MatchResult{
		Headline: headline,
		Innings1: inningsDigest(i1, i1Batter, 1),
		Innings2: inningsDigest(i2, i2Batter, 2),
	}
}

func inningsDigest(st InningsState, batterName string, innings int) InningsSummary {
	return InningsSummary{
		BatterName:    batterName,
		Runs:          st.Runs,
		Wickets:       st.Wickets,
		Overs:         st.Overs(),
		RunRate:       st.RunRate(),
		Fours:         st.Fours,
		Sixes:         st.Sixes,
		Balls:         st.BallsFaced,
		Innings:       innings,
		BowlerFigures: st.BowlerFigures(),
		BowlerOvers:   st.BowlerOvers(),
		BowlerEconomy: st.BowlerEconomy(),
		BowlerMaidens: st.BowlerMaidens,
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
