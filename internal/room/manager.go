package room

import (
	crand "crypto/rand"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cricfever/backend/internal/game"
	"github.com/cricfever/backend/internal/metrics"
)

// Room codes avoid I/O/0/1 so they survive being read out loud.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Sender delivers a message to one connected participant. The transport
// layer implements it; tests use a fake.
type Sender interface {
	ToPlayer(playerID string, message interface{})
}

// TokenIssuer signs resume tokens so a participant can reclaim their slot
// after a dropped connection. Optional.
type TokenIssuer interface {
	Issue(code, playerID, playerName, slot string) (string, error)
}

// Archiver receives completed match results as write-only side output.
// Optional.
type Archiver interface {
	SaveMatch(code string, result game.MatchResult)
}

// Options are the pacing and retention knobs, all configurable.
type Options struct {
	DefaultOvers      int
	CodeAttempts      int
	ReconnectGrace    time.Duration
	RoomRetention     time.Duration
	BallDelay         time.Duration
	WideBallDelay     time.Duration
	InningsBreakDelay time.Duration

	// FieldingDifficulty is broadcast at innings start so both clients
	// build their prediction mirrors on the same fielding table.
	FieldingDifficulty string
}

func DefaultOptions() Options {
	return Options{
		DefaultOvers:       5,
		CodeAttempts:       100,
		ReconnectGrace:     30 * time.Second,
		RoomRetention:      60 * time.Second,
		BallDelay:          2500 * time.Millisecond,
		WideBallDelay:      1500 * time.Millisecond,
		InningsBreakDelay:  5 * time.Second,
		FieldingDifficulty: "medium",
	}
}

// graceEntry tracks a mid-match disconnect whose slot is still held.
type graceEntry struct {
	code       string
	playerName string
	timer      *time.Timer
}

// Manager owns every live room: the code registry, the player registry and
// the disconnect grace windows. Rooms are fully independent; one lock
// serializes registry changes and per-room transitions.
type Manager struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	playerToRoom map[string]string
	disconnected map[string]*graceEntry

	sender Sender
	tokens TokenIssuer
	arch   Archiver
	rec    *metrics.Recorder
	opts   Options

	// codeFn draws one candidate room code; swapped out in tests.
	codeFn func() string
}

func NewManager(sender Sender, opts Options) *Manager {
	return &Manager{
		rooms:        make(map[string]*Room),
		playerToRoom: make(map[string]string),
		disconnected: make(map[string]*graceEntry),
		sender:       sender,
		opts:         opts,
		codeFn:       randomCode,
	}
}

// SetTokenIssuer wires the resume-token signer.
func (m *Manager) SetTokenIssuer(t TokenIssuer) { m.tokens = t }

// SetArchiver wires the optional match archive.
func (m *Manager) SetArchiver(a Archiver) { m.arch = a }

// SetRecorder wires the optional metrics recorder.
func (m *Manager) SetRecorder(r *metrics.Recorder) { m.rec = r }

// Stats reports live room and participant counts.
func (m *Manager) Stats() (rooms, players int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms), len(m.playerToRoom)
}

// randomCode draws one candidate code from crypto/rand.
func randomCode() string {
	buf := make([]byte, codeLength)
	crand.Read(buf)
	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String()
}

// generateCode draws codes until one is free, up to the attempt limit.
func (m *Manager) generateCode() (string, bool) {
	for attempt := 0; attempt < m.opts.CodeAttempts; attempt++ {
		code := m.codeFn()
		if _, taken := m.rooms[code]; !taken {
			return code, true
		}
	}
	return "", false
}

func (m *Manager) sendError(playerID, message string) {
	m.sender.ToPlayer(playerID, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

func (m *Manager) broadcast(r *Room, message interface{}) {
	for _, p := range r.Players {
		m.sender.ToPlayer(p.ID, message)
	}
}

func (m *Manager) sendToOthers(r *Room, exceptID string, message interface{}) {
	for _, p := range r.Players {
		if p.ID != exceptID {
			m.sender.ToPlayer(p.ID, message)
		}
	}
}

// schedule arms a room-owned timer. The callback runs under the manager
// lock and only if the room still exists under the same code with the same
// generation it had when the timer was armed.
func (m *Manager) schedule(r *Room, d time.Duration, fn func(*Room)) {
	gen := r.gen
	code := r.Code
	t := time.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		cur, ok := m.rooms[code]
		if !ok || cur != r || cur.gen != gen {
			return
		}
		fn(r)
	})
	r.timers = append(r.timers, t)
}

// CreateRoom opens a new room and seats the creator as host.
func (m *Manager) CreateRoom(playerID, playerName string, overs int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if playerName == "" {
		m.sendError(playerID, "Player name required")
		return
	}
	if _, in := m.playerToRoom[playerID]; in {
		m.sendError(playerID, "Already in a room")
		return
	}

	code, ok := m.generateCode()
	if !ok {
		m.sendError(playerID, "Failed to generate room code")
		return
	}

	if overs <= 0 {
		overs = m.opts.DefaultOvers
	}

	r := &Room{
		Code:  code,
		Overs: overs,
		State: StateWaiting,
		Players: []*Player{
			{ID: playerID, Name: playerName, Slot: "host", Connected: true},
		},
	}
	m.rooms[code] = r
	m.playerToRoom[playerID] = code
	m.rec.RoomCreated()

	log.Printf("[ROOM] %s created room %s (%d overs)", playerName, code, overs)

	payload := map[string]interface{}{
		"type": "room_created",
		"ok":   true,
		"code": code,
		"slot": "host",
	}
	m.attachResumeToken(payload, code, playerID, playerName, "host")
	m.sender.ToPlayer(playerID, payload)
}

// JoinRoom seats a second participant as guest.
func (m *Manager) JoinRoom(playerID, playerName, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if playerName == "" {
		m.sendError(playerID, "Player name required")
		return
	}
	if code == "" {
		m.sendError(playerID, "Room code required")
		return
	}

	upper := strings.ToUpper(code)
	r, exists := m.rooms[upper]
	if !exists {
		m.sendError(playerID, "Room not found")
		return
	}
	if r.State != StateWaiting {
		m.sendError(playerID, "Match already in progress")
		return
	}
	if r.full() {
		m.sendError(playerID, "Room is full")
		return
	}
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, playerName) {
			m.sendError(playerID, "Name already taken in this room")
			return
		}
	}

	host := r.Players[0]
	r.Players = append(r.Players, &Player{ID: playerID, Name: playerName, Slot: "guest", Connected: true})
	m.playerToRoom[playerID] = upper

	log.Printf("[ROOM] %s joined room %s", playerName, upper)

	payload := map[string]interface{}{
		"type":     "room_joined",
		"ok":       true,
		"code":     upper,
		"slot":     "guest",
		"opponent": host.Name,
	}
	m.attachResumeToken(payload, upper, playerID, playerName, "guest")
	m.sender.ToPlayer(playerID, payload)

	m.sender.ToPlayer(host.ID, map[string]interface{}{
		"type":     "opponent_joined",
		"opponent": playerName,
	})
}

func (m *Manager) attachResumeToken(payload map[string]interface{}, code, playerID, playerName, slot string) {
	if m.tokens == nil {
		return
	}
	tok, err := m.tokens.Issue(code, playerID, playerName, slot)
	if err != nil {
		log.Printf("[ROOM] resume token for %s in %s: %v", playerName, code, err)
		return
	}
	payload["resumeToken"] = tok
}

// SetReady marks a participant ready; when both are, the toss runs.
func (m *Manager) SetReady(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil || r.State != StateWaiting {
		return
	}
	p := r.playerByID(playerID)
	if p == nil {
		return
	}
	p.Ready = true

	m.broadcast(r, map[string]interface{}{
		"type":       "player_ready_update",
		"playerName": p.Name,
		"allReady":   r.allReady(),
	})

	if r.allReady() {
		m.startMatch(r)
	}
}

func (m *Manager) startMatch(r *Room) {
	r.State = StateToss
	r.Session = game.NewSession(r.Overs)

	winnerIdx := r.Session.PerformToss(game.NewRNG(game.NewSeed()))
	winner := r.Players[winnerIdx]

	m.broadcast(r, map[string]interface{}{
		"type":     "toss_result",
		"winner":   winner.Name,
		"winnerId": winner.ID,
	})

	log.Printf("[MATCH] room %s: toss won by %s", r.Code, winner.Name)
}

// HandleTossChoice accepts bat/bowl from the toss winner and starts
// innings 1. Anything else is dropped without reply.
func (m *Manager) HandleTossChoice(playerID, choice string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil || r.Session == nil || r.State != StateToss {
		return
	}

	idx := r.playerIndex(playerID)
	batterIdx, bowlerIdx, err := r.Session.ApplyTossChoice(idx, game.TossChoice(choice))
	if err != nil {
		log.Printf("[MATCH] room %s: toss choice dropped: %v", r.Code, err)
		return
	}

	r.State = StatePlaying
	batter := r.Players[batterIdx]
	bowler := r.Players[bowlerIdx]

	m.broadcast(r, map[string]interface{}{
		"type":       "innings_start",
		"innings":    1,
		"batterName": batter.Name,
		"batterId":   batter.ID,
		"bowlerName": bowler.Name,
		"bowlerId":   bowler.ID,
		"overs":      r.Overs,
		"difficulty": m.opts.FieldingDifficulty,
	})

	m.requestNewBall(r)
	log.Printf("[MATCH] room %s: innings 1 started, %s bats, %s bowls", r.Code, batter.Name, bowler.Name)
}

func (m *Manager) requestNewBall(r *Room) {
	ballNumber, score := r.Session.NewBall()
	m.broadcast(r, map[string]interface{}{
		"type":       "new_ball",
		"ballNumber": ballNumber,
		"score":      score,
	})
}

// BowlInput is the bowler's raw intent for one delivery.
type BowlInput struct {
	Line   float64 `json:"line"`
	Length float64 `json:"length"`
	Speed  float64 `json:"speed"`
}

// HandleBowlInput turns the current bowler's parameters into a delivery and
// ships it with a fresh seed, so both mirrors replay the identical flight.
func (m *Manager) HandleBowlInput(playerID string, in BowlInput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil || r.Session == nil || r.State != StatePlaying {
		return
	}

	idx := r.playerIndex(playerID)
	delivery, err := r.Session.LaunchDelivery(idx, in.Line, in.Length, in.Speed)
	if err != nil {
		log.Printf("[MATCH] room %s: bowl input dropped: %v", r.Code, err)
		return
	}

	_, bowlerIdx := r.Session.Roles()
	seed := game.NewSeed()
	r.ballLaunchedAt = time.Now()
	m.rec.BallBowled()

	m.broadcast(r, map[string]interface{}{
		"type":       "ball_launched",
		"delivery":   delivery,
		"seed":       seed,
		"bowlerName": r.Players[bowlerIdx].Name,
	})
}

// ShotInput is the batter's raw intent plus their live position, relayed to
// the bowler's mirror before the outcome lands.
type ShotInput struct {
	Shot        string     `json:"shot"`
	Lofted      bool       `json:"lofted"`
	BatsmanX    float64    `json:"batsmanX"`
	BatsmanZ    float64    `json:"batsmanZ"`
	HitVelocity *game.Vec3 `json:"hitVelocity,omitempty"`
}

// HandleShotInput relays the shot to both clients immediately so the
// non-striker's mirror can animate while the outcome is still being played
// out on the authoritative side.
func (m *Manager) HandleShotInput(playerID string, in ShotInput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil || r.Session == nil || r.State != StatePlaying {
		return
	}

	batterIdx, _ := r.Session.Roles()
	if r.playerIndex(playerID) != batterIdx {
		return
	}

	m.broadcast(r, map[string]interface{}{
		"type":        "shot_played",
		"shot":        in.Shot,
		"lofted":      in.Lofted,
		"batsmanX":    in.BatsmanX,
		"batsmanZ":    in.BatsmanZ,
		"hitVelocity": in.HitVelocity,
		"batterName":  r.Players[batterIdx].Name,
	})
}

// HandleBallResult applies the authoritative batter's outcome report. The
// session enforces at-most-one per ball; duplicates and reports from the
// wrong side are dropped.
func (m *Manager) HandleBallResult(playerID string, out game.BallOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil || r.Session == nil || r.State != StatePlaying {
		return
	}

	idx := r.playerIndex(playerID)
	score, inningsOver, err := r.Session.ApplyBallResult(idx, out)
	if err != nil {
		log.Printf("[MATCH] room %s: ball result dropped: %v", r.Code, err)
		return
	}

	if !r.ballLaunchedAt.IsZero() {
		m.rec.BallResolved(time.Since(r.ballLaunchedAt))
		r.ballLaunchedAt = time.Time{}
	}
	if out.Wicket {
		m.rec.WicketFallen(string(out.WicketType))
	}

	m.broadcast(r, map[string]interface{}{
		"type":        "ball_result",
		"runs":        out.Runs,
		"wicket":      out.Wicket,
		"wicketType":  out.WicketType,
		"isBoundary":  out.IsBoundary,
		"isWide":      out.IsWide,
		"score":       score,
		"inningsOver": inningsOver,
	})

	if inningsOver {
		m.handleInningsEnd(r)
		return
	}

	delay := m.opts.BallDelay
	if out.IsWide {
		delay = m.opts.WideBallDelay
	}
	m.schedule(r, delay, m.requestNewBall)
}

func (m *Manager) handleInningsEnd(r *Room) {
	if r.Session.InningsNumber() == 1 {
		summary, target := r.Session.StartSecondInnings()

		batterIdx, bowlerIdx := r.Session.Roles()
		batter := r.Players[batterIdx]
		bowler := r.Players[bowlerIdx]

		m.broadcast(r, map[string]interface{}{
			"type":           "innings_break",
			"summary":        summary,
			"target":         target,
			"nextBatterName": batter.Name,
			"nextBatterId":   batter.ID,
			"nextBowlerName": bowler.Name,
			"nextBowlerId":   bowler.ID,
		})

		m.schedule(r, m.opts.InningsBreakDelay, func(r *Room) {
			r.Session.BeginInnings2()
			m.broadcast(r, map[string]interface{}{
				"type":       "innings_start",
				"innings":    2,
				"batterName": batter.Name,
				"batterId":   batter.ID,
				"bowlerName": bowler.Name,
				"bowlerId":   bowler.ID,
				"overs":      r.Overs,
				"target":     target,
				"difficulty": m.opts.FieldingDifficulty,
			})
			m.requestNewBall(r)
		})

		log.Printf("[MATCH] room %s: innings break, target %d", r.Code, target)
		return
	}

	result := r.Session.Result(r.Players[0].Name, r.Players[1].Name)
	r.Session.Finish()
	r.State = StateFinished
	m.rec.MatchCompleted()

	m.broadcast(r, map[string]interface{}{
		"type":     "match_result",
		"headline": result.Headline,
		"innings1": result.Innings1,
		"innings2": result.Innings2,
	})
	log.Printf("[MATCH] room %s: match over, %s", r.Code, result.Headline)

	if m.arch != nil {
		go m.arch.SaveMatch(r.Code, result)
	}

	m.schedule(r, m.opts.RoomRetention, func(r *Room) {
		m.teardownRoom(r.Code)
	})
}

// LeaveRoom removes a participant who explicitly quit. No grace window.
func (m *Manager) LeaveRoom(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil {
		return
	}
	m.removePlayer(playerID, r)
}

// HandleDisconnect starts the grace window for a mid-match drop; anywhere
// outside live play the participant is removed immediately.
func (m *Manager) HandleDisconnect(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.roomOf(playerID)
	if r == nil {
		return
	}
	p := r.playerByID(playerID)
	if p == nil {
		return
	}

	if r.State != StatePlaying {
		m.removePlayer(playerID, r)
		return
	}

	p.Connected = false
	entry := &graceEntry{code: r.Code, playerName: p.Name}
	entry.timer = time.AfterFunc(m.opts.ReconnectGrace, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, still := m.disconnected[playerID]; !still {
			return
		}
		delete(m.disconnected, playerID)
		if cur := m.rooms[entry.code]; cur != nil {
			m.removePlayer(playerID, cur)
		}
	})
	m.disconnected[playerID] = entry

	log.Printf("[ROOM] %s disconnected from %s, holding slot %s", p.Name, r.Code, p.Slot)

	m.sendToOthers(r, playerID, map[string]interface{}{
		"type":       "opponent_disconnected",
		"playerName": p.Name,
	})
}

// Resume reclaims a held slot within the grace window. Returns the room
// state snapshot the resuming client should render from.
func (m *Manager) Resume(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, held := m.disconnected[playerID]
	if held {
		entry.timer.Stop()
		delete(m.disconnected, playerID)
	}

	r := m.roomOf(playerID)
	if r == nil {
		m.sendError(playerID, "Room not found")
		return false
	}
	p := r.playerByID(playerID)
	if p == nil {
		m.sendError(playerID, "Room not found")
		return false
	}
	p.Connected = true

	log.Printf("[ROOM] %s resumed in %s", p.Name, r.Code)

	snapshot := map[string]interface{}{
		"type":  "resume_ok",
		"code":  r.Code,
		"slot":  p.Slot,
		"state": r.State,
	}
	if r.Session != nil {
		snapshot["score"] = r.Session.Score()
		snapshot["innings"] = r.Session.InningsNumber()
	}
	m.sender.ToPlayer(playerID, snapshot)

	m.sendToOthers(r, playerID, map[string]interface{}{
		"type":       "opponent_reconnected",
		"playerName": p.Name,
	})
	return true
}

// SendState pushes the current room snapshot to one participant, with no
// reconnect side effects.
func (m *Manager) SendState(playerID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.roomOf(playerID)
	if r == nil {
		m.sendError(playerID, "Room not found")
		return
	}
	p := r.playerByID(playerID)
	if p == nil {
		m.sendError(playerID, "Room not found")
		return
	}

	snapshot := map[string]interface{}{
		"type":  "room_state",
		"code":  r.Code,
		"slot":  p.Slot,
		"state": r.State,
	}
	if r.Session != nil {
		snapshot["score"] = r.Session.Score()
		snapshot["innings"] = r.Session.InningsNumber()
	}
	m.sender.ToPlayer(playerID, snapshot)
}

func (m *Manager) roomOf(playerID string) *Room {
	code, ok := m.playerToRoom[playerID]
	if !ok {
		return nil
	}
	return m.rooms[code]
}

// removePlayer detaches one participant and either reverts the room to
// waiting or tears it down when empty. Caller holds the lock.
func (m *Manager) removePlayer(playerID string, r *Room) {
	idx := r.playerIndex(playerID)
	if idx == -1 {
		return
	}
	p := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	delete(m.playerToRoom, playerID)
	if entry, held := m.disconnected[playerID]; held {
		entry.timer.Stop()
		delete(m.disconnected, playerID)
	}

	m.broadcast(r, map[string]interface{}{
		"type":       "opponent_left",
		"playerName": p.Name,
	})

	if len(r.Players) == 0 {
		m.teardownRoom(r.Code)
		return
	}

	// Survivor keeps the room, back in the lobby.
	r.invalidateTimers()
	r.State = StateWaiting
	r.Session = nil
	for _, q := range r.Players {
		q.Ready = false
	}
	log.Printf("[ROOM] %s left %s, room reverts to waiting", p.Name, r.Code)
}

// teardownRoom is the single exit path for a room: timers cancelled, every
// registry entry for its participants dropped, room deleted. Caller holds
// the lock.
func (m *Manager) teardownRoom(code string) {
	r, ok := m.rooms[code]
	if !ok {
		return
	}
	r.invalidateTimers()
	for _, p := range r.Players {
		delete(m.playerToRoom, p.ID)
		if entry, held := m.disconnected[p.ID]; held {
			entry.timer.Stop()
			delete(m.disconnected, p.ID)
		}
	}
	delete(m.rooms, code)
	m.rec.RoomClosed()
	log.Printf("[ROOM] cleaned up room %s", code)
}
