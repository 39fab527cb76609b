package game

import "math"

// Resolver classifies what a ball in flight turns into: timing quality,
// edges, bowled, catches, interceptions and run estimates. It is stateless
// per call; fielder positions and difficulty tuning come in at construction.
type Resolver struct {
	Field    []FieldPosition
	Fielding FieldingConfig
}

// NewResolver builds a resolver with the standard field and the fielding
// sharpness for the given difficulty. Unknown difficulties get medium.
func NewResolver(difficulty string) *Resolver {
	cfg, ok := FieldingByDifficulty[difficulty]
	if !ok {
		cfg = FieldingByDifficulty["medium"]
	}
	return &Resolver{Field: StandardField, Fielding: cfg}
}

// AtBatsman reports whether an undealt delivery is in the contact zone.
func (r *Resolver) AtBatsman(b *Ball) bool {
	if b.HasBeenHit {
		return false
	}
	dz := math.Abs(b.Position.Z - BatsmanZ)
	return dz < 0.8 && b.Velocity.Z > 0
}

// TimingQuality grades contact by the ball's longitudinal distance from the
// batsman when the swing lands. Faster balls shrink all three windows by
// ref/speed, floored so they never vanish entirely.
func (r *Resolver) TimingQuality(ballZ, ballSpeed float64) TimingQuality {
	scale := math.Max(MinWindowScale, ReferenceBallSpeed/math.Max(ballSpeed, 1))
	zDist := math.Abs(ballZ - BatsmanZ)

	switch {
	case zDist < PerfectBand*scale:
		return TimingPerfect
	case zDist < GoodBand*scale:
		return TimingGood
	case zDist < MistimedBand*scale:
		return TimingMistimed
	default:
		return TimingMiss
	}
}

// reachBand is the lateral offset window a shot can cover cleanly.
// Offsets are ball.X - batsman.X, positive on the leg side.
type reachBand struct {
	min, max float64
}

// Cross-bat shots reach further on their natural side; straight-bat shots
// are symmetric but narrow.
var reachBands = map[ShotType]reachBand{
	ShotDrive:       {-0.6, 0.6},
	ShotLoftedDrive: {-0.6, 0.6},
	ShotBlock:       {-0.5, 0.5},
	ShotPull:        {-0.3, 1.2},
	ShotSweep:       {-0.3, 1.2},
	ShotCut:         {-1.2, 0.3},
}

// edgeMargin is how far outside the clean band still clips the edge of the
// bat before the swing misses to air entirely.
const edgeMargin = 0.45

// ShotReach classifies whether the chosen stroke can reach a ball at the
// given lateral offset: clean contact, an edge, or a complete miss.
func (r *Resolver) ShotReach(shot ShotType, lateralOffset float64) Reach {
	band, ok := reachBands[shot]
	if !ok {
		band = reachBands[ShotBlock]
	}
	if lateralOffset >= band.min && lateralOffset <= band.max {
		return ReachClean
	}
	if lateralOffset >= band.min-edgeMargin && lateralOffset <= band.max+edgeMargin {
		return ReachEdge
	}
	return ReachAir
}

// CheckBowled: the ball was never struck, has carried through to the stumps'
// line, is at or below bail height and within the lateral gap tolerance.
func (r *Resolver) CheckBowled(b *Ball) bool {
	if b.HasBeenHit {
		return false
	}
	return b.Position.Z >= PitchHalf-0.1 &&
		b.Position.Y <= StumpHeight+0.05 &&
		math.Abs(b.Position.X) <= StumpGap*1.5
}

// NearestFielder returns the closest station to a ground position and its
// distance.
func (r *Resolver) NearestFielder(x, z float64) (FieldPosition, float64) {
	var best FieldPosition
	bestDist := math.Inf(1)
	for _, f := range r.Field {
		d := distance2D(f.X, f.Z, x, z)
		if d < bestDist {
			bestDist = d
			best = f
		}
	}
	return best, bestDist
}

// EstimateRuns converts a settled (or boundary-bound) ball into a run count.
// Boundaries take precedence; otherwise the nearest fielder's sprint time
// plus the return throw bounds how long the batters can keep running.
func (r *Resolver) EstimateRuns(b *Ball) int {
	if b.IsSix() {
		return 6
	}
	if b.IsFour() {
		return 4
	}

	_, dist := r.NearestFielder(b.Position.X, b.Position.Z)

	interceptTime := dist / FielderSpeed
	available := interceptTime + ThrowBackAllowance
	runs := int(available / SecondsPerRun)

	if runs < 0 {
		runs = 0
	}
	if runs > MaxRunningRuns {
		runs = MaxRunningRuns
	}

	// A ball into a genuinely unguarded gap always buys three.
	if dist > GapFielderDist && b.DistanceFromCenter() > GapBallDist {
		runs = MaxRunningRuns
	}

	return runs
}

// CatchOpportunity reports whether some fielder is directly under a lofted
// ball descending through the hand-height band.
func (r *Resolver) CatchOpportunity(b *Ball) (FieldPosition, bool) {
	if !b.HasBeenHit || b.Velocity.Y >= -1 {
		return FieldPosition{}, false
	}
	if b.Position.Y < CatchHeightMin || b.Position.Y > CatchHeightMax {
		return FieldPosition{}, false
	}
	for _, f := range r.Field {
		if distance2D(f.X, f.Z, b.Position.X, b.Position.Z) < CatchHandRadius {
			return f, true
		}
	}
	return FieldPosition{}, false
}

// CatchCarries decides whether this shot's trajectory carries to a fielder
// at all, from the contact-quality table. Used when the full flight is not
// simulated.
func (r *Resolver) CatchCarries(rng *RNG, shot ShotType, timing TimingQuality, lofted bool) bool {
	return rng.Chance(CatchChanceFor(shot, timing, lofted))
}

// AttemptCatch resolves a triggered catch chance: true means taken, false
// means spilled (wicket voided, ball stays live).
func (r *Resolver) AttemptCatch(rng *RNG) bool {
	return !rng.Chance(r.Fielding.DropChance)
}

// Intercept reports whether a fielder can collect a ground ball at its
// current position, and whether it takes a dive.
func (r *Resolver) Intercept(b *Ball) (FieldPosition, bool, bool) {
	if !b.HasBeenHit || b.Position.Y > BallRadius+0.3 {
		return FieldPosition{}, false, false
	}
	for _, f := range r.Field {
		d := distance2D(f.X, f.Z, b.Position.X, b.Position.Z)
		if d < InterceptRadius {
			return f, true, false
		}
		if d < DiveRange {
			return f, true, true
		}
	}
	return FieldPosition{}, false, false
}

// Misfield: an on-radius interception slips through and the ball runs on.
func (r *Resolver) Misfield(rng *RNG) bool {
	return rng.Chance(r.Fielding.MisfieldChance)
}

// OverthrowRuns returns bonus runs conceded by a wild return throw: usually
// zero, occasionally one or two.
func (r *Resolver) OverthrowRuns(rng *RNG) int {
	if !rng.Chance(r.Fielding.OverthrowChance) {
		return 0
	}
	if rng.Chance(0.3) {
		return 2
	}
	return 1
}
