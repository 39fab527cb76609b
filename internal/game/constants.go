package game

// Pitch and ground geometry. All distances in meters, time in seconds.
// These MUST match the constants in the web client exactly, or the
// client's mirrored trajectory will diverge from the authoritative one.

const (
	PitchLength = 20.0
	PitchHalf   = PitchLength / 2

	GroundRadius   = 70.0
	BoundaryRadius = 65.0

	StumpHeight = 0.72
	StumpGap    = 0.115

	BallRadius = 0.036
	Gravity    = -9.81

	BowlerReleaseHeight = 2.1
	BowlerReleaseZ      = -PitchHalf + 1.5

	BatsmanZ = PitchHalf - 1.0
	BatsmanX = 0.0

	// Playable delivery speed band (m/s). The server additionally accepts
	// anything a client sends and clamps it into the hard band below.
	BallSpeedMin = 12.0
	BallSpeedMax = 22.0

	SpeedClampMin = 8.0
	SpeedClampMax = 30.0

	// Length factor is the fraction of the release-to-batsman distance at
	// which the ball pitches. Clamped before it feeds the bounce-time
	// division.
	LengthFactorMin = 0.2
	LengthFactorMax = 0.9

	// Pitch-relative z range a bowling marker can target, mapped onto the
	// length factor band above.
	LengthZMin = -6.5
	LengthZMax = 8.5
)

// Timing windows: base longitudinal distance bands from the batsman, in
// meters. Faster balls shrink the bands (see Resolver.TimingQuality).
const (
	PerfectBand  = 1.5
	GoodBand     = 3.0
	MistimedBand = 5.0

	// Speed at which the base bands apply unscaled; midpoint of the
	// playable band.
	ReferenceBallSpeed = 17.0

	// Bands never shrink below this fraction of their base width.
	MinWindowScale = 0.6
)

// Fielding model.
const (
	FielderSpeed    = 8.0 // m/s sprint
	InterceptRadius = 2.0 // close enough to collect a ground ball
	CatchHandRadius = 1.2 // must be right under the ball
	DiveRange       = 3.5 // extended reach with a dive

	// A lofted ball triggers a catch attempt while descending through the
	// hand-height band.
	CatchHeightMin = 1.2
	CatchHeightMax = 2.2

	// Run estimation: time the throw back to the keeper buys the batters,
	// and how long one run takes.
	ThrowBackAllowance = 1.5 // s
	SecondsPerRun      = 2.4 // s
	MaxRunningRuns     = 3

	// An unguarded gap guarantees three: nearest fielder beyond this AND
	// ball this far out.
	GapFielderDist = 25.0
	GapBallDist    = 40.0
)

// ShotType is the batter's stroke selection.
type ShotType string

const (
	ShotDrive       ShotType = "drive"
	ShotPull        ShotType = "pull"
	ShotCut         ShotType = "cut"
	ShotBlock       ShotType = "block"
	ShotSweep       ShotType = "sweep"
	ShotLoftedDrive ShotType = "lofted_drive"
)

// TimingQuality classifies bat-ball contact.
type TimingQuality string

const (
	TimingPerfect  TimingQuality = "perfect"
	TimingGood     TimingQuality = "good"
	TimingMistimed TimingQuality = "early_late"
	TimingMiss     TimingQuality = "miss"
)

// qualityMultiplier scales shot power by contact quality.
var qualityMultiplier = map[TimingQuality]float64{
	TimingPerfect:  1.0,
	TimingGood:     0.75,
	TimingMistimed: 0.4,
	TimingMiss:     0,
}

// Reach classifies where the ball was relative to the chosen shot's arc.
type Reach string

const (
	ReachClean Reach = "clean"
	ReachEdge  Reach = "edge"
	ReachAir   Reach = "air" // swung and missed entirely
)

// WicketType enumerates dismissals the outcome model can produce.
type WicketType string

const (
	WicketBowled WicketType = "bowled"
	WicketCaught WicketType = "caught"
)

// FieldPosition is a named fielder station.
type FieldPosition struct {
	Name string
	X    float64
	Z    float64
}

// StandardField is the nine-man ring used for every delivery.
// Coordinate system: -Z toward the bowler's end, +Z behind the batsman,
// +X leg side, -X off side.
var StandardField = []FieldPosition{
	{"Mid-off", -5, -20},
	{"Mid-on", 5, -20},
	{"Cover", -18, -10},
	{"Mid-wicket", 18, -10},
	{"Point", -22, 5},
	{"Square Leg", 22, 5},
	{"Third Man", -20, 20},
	{"Fine Leg", 20, 20},
	{"Long-off", -8, -40},
}

// FieldingConfig holds the playtuned probabilities. They are configuration,
// not protocol: both clients receive outcomes, never these numbers.
type FieldingConfig struct {
	DropChance      float64 // would-be catch spilled, ball stays live
	MisfieldChance  float64 // on-radius interception slips through
	OverthrowChance float64 // wild return throw concedes bonus runs
}

// FieldingByDifficulty maps the difficulty knob to fielding sharpness.
var FieldingByDifficulty = map[string]FieldingConfig{
	"easy":   {DropChance: 0.35, MisfieldChance: 0.18, OverthrowChance: 0.10},
	"medium": {DropChance: 0.20, MisfieldChance: 0.10, OverthrowChance: 0.06},
	"hard":   {DropChance: 0.08, MisfieldChance: 0.04, OverthrowChance: 0.03},
}

// CatchChanceFor returns the base probability a lofted/flat shot of the
// given timing carries a catchable trajectory. From the single-player
// tuning table; a block never carries.
func CatchChanceFor(shot ShotType, timing TimingQuality, lofted bool) float64 {
	if shot == ShotBlock {
		return 0
	}
	switch timing {
	case TimingMistimed:
		if lofted {
			return 0.55
		}
		return 0.2
	case TimingGood:
		if lofted {
			return 0.15
		}
		return 0.05
	case TimingPerfect:
		if lofted {
			return 0.08
		}
		return 0.02
	}
	return 0
}
