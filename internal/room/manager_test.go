package room

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cricfever/backend/internal/game"
)

// fakeSender records every message per player so tests can assert on the
// protocol without a websocket in the loop. Timer callbacks deliver from
// their own goroutines, so access is locked.
type fakeSender struct {
	mu       sync.Mutex
	messages map[string][]map[string]interface{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{messages: make(map[string][]map[string]interface{})}
}

func (f *fakeSender) ToPlayer(playerID string, message interface{}) {
	m, ok := message.(map[string]interface{})
	if !ok {
		m = map[string]interface{}{"type": "unknown"}
	}
	f.mu.Lock()
	f.messages[playerID] = append(f.messages[playerID], m)
	f.mu.Unlock()
}

func (f *fakeSender) last(playerID string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[playerID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (f *fakeSender) lastOfType(playerID, typ string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i]["type"] == typ {
			return msgs[i]
		}
	}
	return nil
}

func (f *fakeSender) countOfType(playerID, typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages[playerID] {
		if m["type"] == typ {
			n++
		}
	}
	return n
}

func fastOptions() Options {
	o := DefaultOptions()
	o.BallDelay = 5 * time.Millisecond
	o.WideBallDelay = 2 * time.Millisecond
	o.InningsBreakDelay = 5 * time.Millisecond
	o.ReconnectGrace = 20 * time.Millisecond
	o.RoomRetention = 20 * time.Millisecond
	return o
}

func newTestManager() (*Manager, *fakeSender) {
	s := newFakeSender()
	return NewManager(s, fastOptions()), s
}

// setupRoom creates a room with two seated players and returns its code.
func setupRoom(t *testing.T, m *Manager, s *fakeSender) string {
	t.Helper()
	m.CreateRoom("p1", "Asha", 2)
	created := s.lastOfType("p1", "room_created")
	if created == nil {
		t.Fatalf("no room_created message: %v", s.messages["p1"])
	}
	code := created["code"].(string)
	m.JoinRoom("p2", "Bilal", code)
	if joined := s.lastOfType("p2", "room_joined"); joined == nil {
		t.Fatalf("no room_joined message: %v", s.messages["p2"])
	}
	return code
}

func TestCreateRoomValidation(t *testing.T) {
	m, s := newTestManager()

	m.CreateRoom("p1", "", 2)
	if msg := s.last("p1"); msg == nil || msg["message"] != "Player name required" {
		t.Errorf("empty name accepted: %v", msg)
	}

	m.CreateRoom("p1", "Asha", 2)
	m.CreateRoom("p1", "Asha", 2)
	if msg := s.last("p1"); msg["message"] != "Already in a room" {
		t.Errorf("double create accepted: %v", msg)
	}
}

func TestRoomCodeShape(t *testing.T) {
	m, s := newTestManager()
	m.CreateRoom("p1", "Asha", 2)
	code := s.lastOfType("p1", "room_created")["code"].(string)

	if len(code) != 6 {
		t.Fatalf("code length %d", len(code))
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("code %q contains %q outside alphabet", code, c)
		}
	}
}

func TestRoomCodeExhaustionFailsClosed(t *testing.T) {
	m, s := newTestManager()
	m.codeFn = func() string { return "AAAAAA" }

	m.CreateRoom("p1", "Asha", 2)
	if s.lastOfType("p1", "room_created") == nil {
		t.Fatal("first room with a free code not created")
	}

	// Every subsequent draw collides with the live room.
	m.CreateRoom("p2", "Bilal", 2)
	if msg := s.last("p2"); msg["message"] != "Failed to generate room code" {
		t.Errorf("exhausted generator: got %v", msg)
	}
	if rooms, _ := m.Stats(); rooms != 1 {
		t.Errorf("rooms = %d after failed create, want 1", rooms)
	}
}

func TestJoinRoomValidation(t *testing.T) {
	m, s := newTestManager()
	m.CreateRoom("p1", "Asha", 2)
	code := s.lastOfType("p1", "room_created")["code"].(string)

	cases := []struct {
		id, name, code, want string
	}{
		{"g1", "", code, "Player name required"},
		{"g1", "Bilal", "", "Room code required"},
		{"g1", "Bilal", "ZZZZZZ", "Room not found"},
		{"g1", "asha", code, "Name already taken in this room"},
	}
	for _, c := range cases {
		m.JoinRoom(c.id, c.name, c.code)
		if msg := s.last(c.id); msg["message"] != c.want {
			t.Errorf("join(%q,%q): got %v, want %q", c.name, c.code, msg, c.want)
		}
	}

	m.JoinRoom("g1", "Bilal", code)
	m.JoinRoom("g2", "Chen", code)
	if msg := s.last("g2"); msg["message"] != "Room is full" {
		t.Errorf("third player seated: %v", msg)
	}
}

func TestJoinRoomCodeIsCaseInsensitive(t *testing.T) {
	m, s := newTestManager()
	m.CreateRoom("p1", "Asha", 2)
	code := s.lastOfType("p1", "room_created")["code"].(string)

	m.JoinRoom("p2", "Bilal", strings.ToLower(code))
	if s.lastOfType("p2", "room_joined") == nil {
		t.Errorf("lowercase code rejected: %v", s.last("p2"))
	}
	if opp := s.lastOfType("p1", "opponent_joined"); opp == nil || opp["opponent"] != "Bilal" {
		t.Errorf("host not told about guest: %v", opp)
	}
}

func TestReadyFlowRunsToss(t *testing.T) {
	m, s := newTestManager()
	setupRoom(t, m, s)

	m.SetReady("p1")
	if upd := s.lastOfType("p2", "player_ready_update"); upd == nil || upd["allReady"] != false {
		t.Fatalf("first ready not broadcast: %v", upd)
	}
	if s.lastOfType("p1", "toss_result") != nil {
		t.Fatal("toss ran with one player ready")
	}

	m.SetReady("p2")
	toss := s.lastOfType("p1", "toss_result")
	if toss == nil {
		t.Fatal("toss did not run when both ready")
	}
	winner := toss["winner"].(string)
	if winner != "Asha" && winner != "Bilal" {
		t.Errorf("toss winner %q is not a participant", winner)
	}
}

// tossWinnerID reads back which player won the toss from the broadcast.
func tossWinnerID(t *testing.T, s *fakeSender) (winnerID, loserID string) {
	t.Helper()
	toss := s.lastOfType("p1", "toss_result")
	if toss == nil {
		t.Fatal("no toss_result")
	}
	winnerID = toss["winnerId"].(string)
	if winnerID == "p1" {
		return "p1", "p2"
	}
	return "p2", "p1"
}

func startMatch(t *testing.T, m *Manager, s *fakeSender) (code, batterID, bowlerID string) {
	t.Helper()
	code = setupRoom(t, m, s)
	m.SetReady("p1")
	m.SetReady("p2")
	winnerID, loserID := tossWinnerID(t, s)
	m.HandleTossChoice(winnerID, "bat")
	return code, winnerID, loserID
}

func TestTossChoiceFromLoserIsDropped(t *testing.T) {
	m, s := newTestManager()
	setupRoom(t, m, s)
	m.SetReady("p1")
	m.SetReady("p2")
	_, loserID := tossWinnerID(t, s)

	m.HandleTossChoice(loserID, "bat")
	if s.lastOfType("p1", "innings_start") != nil {
		t.Fatal("innings started on loser's choice")
	}
}

func TestTossChoiceStartsInningsAndFirstBall(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)

	start := s.lastOfType("p1", "innings_start")
	if start == nil {
		t.Fatal("no innings_start")
	}
	if start["innings"] != 1 {
		t.Errorf("innings = %v", start["innings"])
	}
	if start["batterId"] != batterID || start["bowlerId"] != bowlerID {
		t.Errorf("roles wrong: %v (chose bat as %s)", start, batterID)
	}
	if nb := s.lastOfType("p1", "new_ball"); nb == nil || nb["ballNumber"] != 1 {
		t.Errorf("first ball not requested: %v", nb)
	}
	if start["difficulty"] != "medium" {
		t.Errorf("fielding difficulty = %v, want medium", start["difficulty"])
	}
}

func TestBowlInputAuthorization(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)

	m.HandleBowlInput(batterID, BowlInput{Line: 0, Length: 5, Speed: 17})
	if s.lastOfType("p1", "ball_launched") != nil {
		t.Fatal("batter allowed to bowl")
	}

	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})
	launched := s.lastOfType(batterID, "ball_launched")
	if launched == nil {
		t.Fatal("bowler's delivery not relayed")
	}
	if _, ok := launched["seed"]; !ok {
		t.Error("ball_launched carries no seed")
	}
}

func TestShotInputAuthorization(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)
	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})

	m.HandleShotInput(bowlerID, ShotInput{Shot: "drive"})
	if s.lastOfType(batterID, "shot_played") != nil {
		t.Fatal("bowler allowed to bat")
	}

	m.HandleShotInput(batterID, ShotInput{Shot: "drive", Lofted: true})
	if sp := s.lastOfType(bowlerID, "shot_played"); sp == nil || sp["shot"] != "drive" {
		t.Errorf("shot not relayed to bowler: %v", sp)
	}
}

func TestDuplicateBallResultIgnored(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)
	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})

	m.HandleBallResult(batterID, game.BallOutcome{Runs: 4, IsBoundary: true})
	m.HandleBallResult(batterID, game.BallOutcome{Runs: 6, IsBoundary: true})

	if n := s.countOfType(bowlerID, "ball_result"); n != 1 {
		t.Fatalf("got %d ball_result broadcasts, want 1", n)
	}
	score := s.lastOfType(bowlerID, "ball_result")["score"].(game.Score)
	if score.Runs != 4 {
		t.Errorf("duplicate result changed the score: %+v", score)
	}
}

func TestBallResultFromBowlerDropped(t *testing.T) {
	m, s := newTestManager()
	_, _, bowlerID := startMatch(t, m, s)
	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})

	m.HandleBallResult(bowlerID, game.BallOutcome{Runs: 6, IsBoundary: true})
	if s.lastOfType(bowlerID, "ball_result") != nil {
		t.Fatal("bowler's outcome report accepted")
	}
}

func TestNextBallScheduledAfterResult(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)
	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})
	m.HandleBallResult(batterID, game.BallOutcome{Runs: 1})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		n := s.countOfType(batterID, "new_ball")
		if n >= 2 {
			nb := s.lastOfType(batterID, "new_ball")
			if nb["ballNumber"] != 2 {
				t.Errorf("second ball numbered %v", nb["ballNumber"])
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("next ball never scheduled")
}

// playBall pushes one bowl+result cycle through the manager, then waits for
// the next new_ball (or innings/match transition) so pacing timers settle.
func playBall(t *testing.T, m *Manager, s *fakeSender, batterID, bowlerID string, out game.BallOutcome) {
	t.Helper()
	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})
	before := s.countOfType(batterID, "new_ball")
	m.HandleBallResult(batterID, out)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		progressed := s.countOfType(batterID, "new_ball") > before ||
			s.lastOfType(batterID, "innings_break") != nil ||
			s.lastOfType(batterID, "match_result") != nil
		if progressed {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("match did not progress after ball result")
}

func TestInningsBreakAndSecondInnings(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s) // 2-over match

	for i := 0; i < 12; i++ {
		playBall(t, m, s, batterID, bowlerID, game.BallOutcome{Runs: 1})
	}

	brk := s.lastOfType(batterID, "innings_break")
	if brk == nil {
		t.Fatal("no innings_break after 12 legal balls")
	}
	if brk["target"] != 13 {
		t.Errorf("target = %v, want 13", brk["target"])
	}
	if brk["nextBatterId"] != bowlerID {
		t.Errorf("roles did not swap: %v", brk)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		start := s.lastOfType(bowlerID, "innings_start")
		if start != nil && start["innings"] == 2 {
			if start["target"] != 13 {
				t.Errorf("innings 2 target = %v", start["target"])
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("second innings never started")
}

func TestMatchResultAndRetentionTeardown(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)

	for i := 0; i < 12; i++ {
		playBall(t, m, s, batterID, bowlerID, game.BallOutcome{Runs: 0})
	}
	// Wait out the innings break.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		st := s.lastOfType(bowlerID, "innings_start")
		if st != nil && st["innings"] == 2 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Chase of 1: a single off the first ball wins it.
	playBall(t, m, s, bowlerID, batterID, game.BallOutcome{Runs: 1})

	result := s.lastOfType(batterID, "match_result")
	if result == nil {
		t.Fatal("no match_result")
	}
	headline := result["headline"].(string)
	if !strings.Contains(headline, "wins by 10 wickets!") {
		t.Errorf("headline = %q", headline)
	}

	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rooms, players := m.Stats()
		if rooms == 0 && players == 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("room not torn down after retention window")
}

func TestDisconnectGraceAndResume(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)

	m.HandleDisconnect(batterID)
	if od := s.lastOfType(bowlerID, "opponent_disconnected"); od == nil {
		t.Fatal("opponent not told about disconnect")
	}
	if rooms, _ := m.Stats(); rooms != 1 {
		t.Fatal("room torn down during grace window")
	}

	if !m.Resume(batterID) {
		t.Fatal("resume within grace window failed")
	}
	if ok := s.lastOfType(batterID, "resume_ok"); ok == nil {
		t.Fatal("no resume_ok snapshot")
	}
	if rc := s.lastOfType(bowlerID, "opponent_reconnected"); rc == nil {
		t.Fatal("opponent not told about reconnect")
	}
}

func TestDisconnectGraceExpiry(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)

	m.HandleDisconnect(batterID)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		left := s.lastOfType(bowlerID, "opponent_left")
		if left != nil {
			// Survivor keeps the room, back in the lobby.
			rooms, players := m.Stats()
			if rooms != 1 || players != 1 {
				t.Errorf("after expiry: rooms=%d players=%d", rooms, players)
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("slot never released after grace expiry")
}

func TestLobbyDisconnectRemovesImmediately(t *testing.T) {
	m, s := newTestManager()
	setupRoom(t, m, s)

	m.HandleDisconnect("p2")
	if s.lastOfType("p1", "opponent_left") == nil {
		t.Fatal("lobby disconnect did not remove player")
	}
	if _, players := m.Stats(); players != 1 {
		t.Errorf("players = %d, want 1", players)
	}
}

func TestLeaveRevertsRoomToWaiting(t *testing.T) {
	m, s := newTestManager()
	code, batterID, bowlerID := startMatch(t, m, s)

	m.LeaveRoom(batterID)

	if s.lastOfType(bowlerID, "opponent_left") == nil {
		t.Fatal("survivor not told")
	}
	m.mu.RLock()
	r := m.rooms[code]
	m.mu.RUnlock()
	if r == nil {
		t.Fatal("room torn down with a survivor inside")
	}
	if r.State != StateWaiting || r.Session != nil {
		t.Errorf("room not reverted: state=%s session=%v", r.State, r.Session)
	}

	m.LeaveRoom(bowlerID)
	if rooms, _ := m.Stats(); rooms != 0 {
		t.Error("empty room not torn down")
	}
}

func TestStaleTimerCannotTouchRevertedRoom(t *testing.T) {
	m, s := newTestManager()
	_, batterID, bowlerID := startMatch(t, m, s)

	// Arm the next-ball timer, then immediately blow the room back to
	// waiting. The timer's generation check must keep it from firing into
	// the lobby.
	m.HandleBowlInput(bowlerID, BowlInput{Line: 0, Length: 5, Speed: 17})
	m.HandleBallResult(batterID, game.BallOutcome{Runs: 1})
	m.LeaveRoom(batterID)

	balls := s.countOfType(bowlerID, "new_ball")
	time.Sleep(50 * time.Millisecond)
	after := s.countOfType(bowlerID, "new_ball")
	if after != balls {
		t.Errorf("stale timer delivered a ball to a waiting room")
	}
}
