package game

// Mirror is the non-authoritative prediction loop a client runs between
// network events: it reseeds from the wire seed, replays the delivery, steps
// the flight at a fixed cadence, and resolves a speculative outcome. Score
// fields always defer to the latest server snapshot, last-write-wins.
type Mirror struct {
	resolver *Resolver
	ball     *Ball
	rng      *RNG

	// Latest authoritative snapshot; never merged additively.
	Score Score
}

func NewMirror(difficulty string) *Mirror {
	return &Mirror{
		resolver: NewResolver(difficulty),
		ball:     NewBall(),
	}
}

// Reseed resets the local generator from a wire seed before replaying a
// delivery, so the mirrored flight matches the authoritative one.
func (m *Mirror) Reseed(seed int32) {
	m.rng = NewRNG(seed)
}

// ApplySnapshot overwrites the local score with the server's. Arbitrarily
// delayed or reordered speculative state never survives this.
func (m *Mirror) ApplySnapshot(s Score) {
	m.Score = s
}

// ShotPlan is the batter's intent for the incoming ball.
type ShotPlan struct {
	Shot   ShotType
	Lofted bool
	// SwingAtZ is the ball z at which the batter commits the swing.
	SwingAtZ float64
}

// simStep is the fixed simulation step; fine enough that a 30 m/s ball
// moves well under the contact window per step.
const simStep = 1.0 / 120

// maxSimTime bounds a runaway simulation (a settled ball always ends well
// before this).
const maxSimTime = 20.0

// PlayBall replays a delivery against a shot plan and resolves a speculative
// outcome. Deterministic for a given seed, delivery and plan.
func (m *Mirror) PlayBall(d Delivery, plan ShotPlan) BallOutcome {
	if m.rng == nil {
		m.rng = NewRNG(NewSeed())
	}
	rng := m.rng

	b := m.ball
	b.Reset()
	b.Launch(ReleasePosition(), d.Velocity)

	swung := false
	var timing TimingQuality = TimingMiss
	caughtPending := false
	misfielded := false
	fieldCooldown := 0.0

	for t := 0.0; t < maxSimTime; t += simStep {
		b.Update(simStep, rng)

		// Swing commitment: once the ball crosses the planned point.
		if !swung && !b.HasBeenHit && b.Position.Z >= plan.SwingAtZ && b.Velocity.Z > 0 {
			swung = true
			timing = m.resolver.TimingQuality(b.Position.Z, d.Speed)

			reach := m.resolver.ShotReach(plan.Shot, b.Position.X-BatsmanX)
			switch reach {
			case ReachAir:
				timing = TimingMiss
			case ReachEdge:
				if timing == TimingPerfect || timing == TimingGood {
					timing = TimingMistimed
				}
			}

			if vel, ok := CalculateShotVelocity(rng, plan.Shot, plan.Lofted, timing); ok {
				b.HitByBat(vel)
			}
		}

		if !b.HasBeenHit {
			if m.resolver.CheckBowled(b) {
				return BallOutcome{Wicket: true, WicketType: WicketBowled}
			}
			// Carried through to the keeper: dead ball, or a wide if it
			// passed well outside the reach of any stroke.
			if b.Position.Z > PitchHalf+2 {
				if isWideLine(b.Position.X) {
					return BallOutcome{Runs: 1, IsWide: true}
				}
				return BallOutcome{}
			}
			continue
		}

		// Aerial catch window.
		if !caughtPending {
			if _, ok := m.resolver.CatchOpportunity(b); ok {
				caughtPending = true
				if m.resolver.AttemptCatch(rng) {
					return BallOutcome{Wicket: true, WicketType: WicketCaught}
				}
				// Dropped: kill most of the pace, ball stays live.
				b.Velocity = b.Velocity.Times(0.3)
			}
		}

		// Boundary ends the ball immediately.
		if b.IsSix() {
			return BallOutcome{Runs: 6, IsBoundary: true}
		}
		if b.IsFour() {
			return BallOutcome{Runs: 4, IsBoundary: true}
		}

		// Ground fielding.
		if fieldCooldown > 0 {
			fieldCooldown -= simStep
		} else if _, ok, _ := m.resolver.Intercept(b); ok {
			if !misfielded && m.resolver.Misfield(rng) {
				// Slips through once; the ball runs on past the stumble.
				misfielded = true
				fieldCooldown = 1.0
				b.Velocity = b.Velocity.Times(0.6)
				continue
			}
			runs := m.resolver.EstimateRuns(b) + m.resolver.OverthrowRuns(rng)
			if runs > 6 {
				runs = 6
			}
			return BallOutcome{Runs: runs}
		}

		if b.Settled {
			return BallOutcome{Runs: m.resolver.EstimateRuns(b)}
		}
	}

	return BallOutcome{Runs: m.resolver.EstimateRuns(b)}
}

// isWideLine: the ball passed the batsman beyond any stroke's widest edge
// tolerance on either side.
func isWideLine(x float64) bool {
	return x > 1.2+edgeMargin || x < -(1.2+edgeMargin)
}
