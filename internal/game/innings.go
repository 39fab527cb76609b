package game

import "fmt"

// BallOutcome is the single source of truth for one delivery's result.
// Exactly one is produced per legal delivery and applied to the innings
// ledger exactly once.
type BallOutcome struct {
	Runs       int        `json:"runs"`
	Wicket     bool       `json:"wicket"`
	WicketType WicketType `json:"wicketType,omitempty"`
	IsBoundary bool       `json:"isBoundary"`
	IsWide     bool       `json:"isWide"`
}

// InningsState is one side's batting ledger. It is a value: ApplyOutcome
// returns a new state rather than mutating, so a duplicate application
// cannot happen through any aliased path.
type InningsState struct {
	Runs       int
	Wickets    int
	BallsFaced int
	Fours      int
	Sixes      int
	Wides      int
	Extras     int

	// Current batter's personal tally; reset when a wicket falls.
	BatsmanRuns  int
	BatsmanBalls int

	// Bowling figures for the side bowling this innings.
	BowlerBalls        int
	BowlerRunsConceded int
	BowlerWickets      int
	BowlerMaidens      int
	currentOverRuns    int

	Target         int // 0 = no target (first innings)
	LastBallResult string
}

// ApplyOutcome folds one ball outcome into the ledger and returns the new
// ledger. Wides add to runs/extras/wides but do not count as a legal ball;
// a wicket counts the ball and resets the incoming batter's tally.
func ApplyOutcome(s InningsState, o BallOutcome) InningsState {
	switch {
	case o.IsWide:
		s.Runs++
		s.Extras++
		s.Wides++
		s.BowlerRunsConceded++
		s.currentOverRuns++
		s.LastBallResult = "WIDE"

	case o.Wicket:
		s.BallsFaced++
		s.Wickets++
		s.BatsmanRuns = 0
		s.BatsmanBalls = 0
		s.LastBallResult = fmt.Sprintf("W (%s)", o.WicketType)
		s.BowlerBalls++
		s.BowlerWickets++
		s.closeOverIfDone()

	default:
		s.BallsFaced++
		s.BatsmanBalls++
		s.Runs += o.Runs
		s.BatsmanRuns += o.Runs
		if o.IsBoundary {
			if o.Runs == 4 {
				s.Fours++
			}
			if o.Runs == 6 {
				s.Sixes++
			}
		}
		switch {
		case o.Runs == 4:
			s.LastBallResult = "FOUR!"
		case o.Runs == 6:
			s.LastBallResult = "SIX!"
		case o.Runs == 0:
			s.LastBallResult = "dot"
		default:
			s.LastBallResult = fmt.Sprintf("%d", o.Runs)
		}
		s.BowlerBalls++
		s.BowlerRunsConceded += o.Runs
		s.currentOverRuns += o.Runs
		s.closeOverIfDone()
	}

	return s
}

func (s *InningsState) closeOverIfDone() {
	if s.BowlerBalls%6 == 0 {
		if s.currentOverRuns == 0 {
			s.BowlerMaidens++
		}
		s.currentOverRuns = 0
	}
}

// IsOver evaluates the innings-complete predicate for a match of the given
// overs: all out, overs exhausted, or target reached.
func (s InningsState) IsOver(overs int) bool {
	if s.Target > 0 && s.Runs >= s.Target {
		return true
	}
	return s.Wickets >= 10 || s.BallsFaced >= overs*6
}

// RunsNeeded is how many more the chasing side wants; 0 if no target.
func (s InningsState) RunsNeeded() int {
	if s.Target == 0 {
		return 0
	}
	need := s.Target - s.Runs
	if need < 0 {
		need = 0
	}
	return need
}

// Overs formats ballsFaced as the usual "o.b" string.
func (s InningsState) Overs() string {
	return oversString(s.BallsFaced)
}

// RunRate is runs per over, "0.00" before the first ball.
func (s InningsState) RunRate() string {
	return runRate(s.Runs, s.BallsFaced)
}

// StrikeRate is the current batter's runs per 100 balls.
func (s InningsState) StrikeRate() string {
	if s.BatsmanBalls == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(s.BatsmanRuns)/float64(s.BatsmanBalls)*100)
}

// BowlerOvers formats the bowler's completed balls as "o.b".
func (s InningsState) BowlerOvers() string {
	return oversString(s.BowlerBalls)
}

// BowlerEconomy is runs conceded per over, "0.00" before the first ball.
func (s InningsState) BowlerEconomy() string {
	return runRate(s.BowlerRunsConceded, s.BowlerBalls)
}

// BowlerFigures is the classic "wickets/runs" line.
func (s InningsState) BowlerFigures() string {
	return fmt.Sprintf("%d/%d", s.BowlerWickets, s.BowlerRunsConceded)
}

func oversString(balls int) string {
	return fmt.Sprintf("%d.%d", balls/6, balls%6)
}

func runRate(runs, balls int) string {
	if balls == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(runs)/(float64(balls)/6))
}

// Score is the live scoreboard snapshot shipped to clients with every
// new_ball and ball_result. The mirror treats it as last-write-wins.
type Score struct {
	Runs           int    `json:"runs"`
	Wickets        int    `json:"wickets"`
	Overs          string `json:"overs"`
	Fours          int    `json:"fours"`
	Sixes          int    `json:"sixes"`
	Wides          int    `json:"wides"`
	Extras         int    `json:"extras"`
	BatsmanRuns    int    `json:"batsmanRuns"`
	BatsmanBalls   int    `json:"batsmanBalls"`
	Target         int    `json:"target,omitempty"`
	LastBallResult string `json:"lastBallResult"`
	Innings        int    `json:"innings"`
}

// InningsSummary is the end-of-innings digest carried by innings_break and
// match_result.
type InningsSummary struct {
	BatterName    string `json:"batterName,omitempty"`
	Runs          int    `json:"runs"`
	Wickets       int    `json:"wickets"`
	Overs         string `json:"overs"`
	RunRate       string `json:"runRate"`
	Fours         int    `json:"fours"`
	Sixes         int    `json:"sixes"`
	Balls         int    `json:"balls"`
	Innings       int    `json:"innings"`
	BowlerFigures string `json:"bowlerFigures"`
	BowlerOvers   string `json:"bowlerOvers"`
	BowlerEconomy string `json:"bowlerEconomy"`
	BowlerMaidens int    `json:"bowlerMaidens"`
}
