package game

import "math"

// Delivery is one bowled ball's kinematic description. Immutable once
// generated; a fresh one is produced per ball.
type Delivery struct {
	Velocity        Vec3    `json:"velocity"`
	Speed           float64 `json:"speed"`
	Line            float64 `json:"line"`
	Length          float64 `json:"length"`
	LengthFactor    float64 `json:"lengthFactor"`
	Swing           float64 `json:"swing,omitempty"`
	ExpectedArrival float64 `json:"expectedArrivalTime,omitempty"`
}

// ReleasePosition is where every delivery starts.
func ReleasePosition() Vec3 {
	return Vec3{X: 0, Y: BowlerReleaseHeight, Z: BowlerReleaseZ}
}

// NewDelivery solves the release velocity for a bowler-supplied line (lateral
// target), length (pitch-relative z of the bounce) and speed. Kinematics are
// solved per axis: the vertical component is chosen so the ball reaches
// ground level exactly at bounceTime, the horizontal components are plain
// displacement over time.
func NewDelivery(line, length, speed float64) Delivery {
	releaseZ := BowlerReleaseZ
	releaseY := BowlerReleaseHeight
	dz := BatsmanZ - releaseZ

	clampedSpeed := clamp(speed, SpeedClampMin, SpeedClampMax)
	totalTime := math.Abs(dz) / clampedSpeed

	lengthFactor := clamp((length-LengthZMin)/(LengthZMax-LengthZMin), LengthFactorMin, LengthFactorMax)
	bounceTime := totalTime * lengthFactor

	// y = y0 + vy*t + 0.5*g*t^2 = 0 at the bounce
	vy := (-releaseY - 0.5*Gravity*bounceTime*bounceTime) / bounceTime
	vz := dz / totalTime
	vx := (line - 0) / totalTime

	return Delivery{
		Velocity:     NewVec3(vx, vy, vz),
		Speed:        clampedSpeed,
		Line:         line,
		Length:       length,
		LengthFactor: lengthFactor,
	}
}

// Line buckets a generated delivery can target.
const (
	lineOffside = -0.3
	lineMiddle  = 0.0
	lineLegside = 0.3
)

// DeliveryGenerator produces deliveries from weighted line/length buckets.
// Used for practice bowling and by the prediction mirror's tests; the
// two-player path takes explicit bowl input instead.
type DeliveryGenerator struct {
	Lines         []float64
	LineWeights   []float64
	Lengths       []float64 // length factors: 0.3 short, 0.5 good, 0.7 full, 0.85 yorker
	LengthWeights []float64
	SwingRange    float64
}

func NewDeliveryGenerator() *DeliveryGenerator {
	return &DeliveryGenerator{
		Lines:         []float64{lineOffside, lineMiddle, lineLegside},
		LineWeights:   []float64{0.3, 0.45, 0.25},
		Lengths:       []float64{0.3, 0.5, 0.7, 0.85},
		LengthWeights: []float64{0.15, 0.4, 0.25, 0.2},
		SwingRange:    0.3,
	}
}

// Generate draws speed, line, length and swing from the given source and
// solves the trajectory from the release position.
func (g *DeliveryGenerator) Generate(rng *RNG) Delivery {
	release := ReleasePosition()

	speed := rng.Range(BallSpeedMin, BallSpeedMax)
	line := g.Lines[rng.WeightedPick(g.LineWeights)]
	lengthFactor := g.Lengths[rng.WeightedPick(g.LengthWeights)]
	swing := rng.Range(-g.SwingRange, g.SwingRange)

	dz := BatsmanZ - release.Z
	totalTime := math.Abs(dz) / speed
	bounceTime := totalTime * lengthFactor

	vy := (-release.Y - 0.5*Gravity*bounceTime*bounceTime) / bounceTime
	vz := dz / totalTime
	vx := (line + swing - release.X) / totalTime

	return Delivery{
		Velocity:        NewVec3(vx, vy, vz),
		Speed:           speed,
		Line:            line,
		LengthFactor:    lengthFactor,
		Length:          release.Z + dz*lengthFactor,
		Swing:           swing,
		ExpectedArrival: totalTime,
	}
}

// BounceTime is when the delivery pitches.
func (d Delivery) BounceTime() float64 {
	dz := BatsmanZ - BowlerReleaseZ
	return math.Abs(dz) / d.Speed * d.LengthFactor
}

// CalculateShotVelocity maps a stroke and its contact quality to an exit
// velocity cone. Returns ok=false when the timing was a clean miss.
// Coordinate system: -Z toward bowler, +Z behind batsman, +X leg side,
// -X off side.
func CalculateShotVelocity(rng *RNG, shot ShotType, lofted bool, timing TimingQuality) (Vec3, bool) {
	mult, known := qualityMultiplier[timing]
	if !known || mult == 0 {
		return Vec3{}, false
	}

	var vx, vy, vz float64

	switch shot {
	case ShotDrive:
		// Straight back past the bowler, slight spread.
		speed := rng.Range(22, 36) * mult
		vx = rng.Range(-2, 2)
		vz = -speed
		if lofted {
			vy = rng.Range(6, 14)
		} else {
			vy = rng.Range(1, 4)
		}
	case ShotPull:
		// Strong leg side, anywhere from mid-wicket round to square leg.
		speed := rng.Range(24, 40) * mult
		vx = speed * rng.Range(0.6, 0.95)
		vz = speed * rng.Range(-0.4, 0.3)
		if lofted {
			vy = rng.Range(8, 16)
		} else {
			vy = rng.Range(2, 5)
		}
	case ShotCut:
		// Strong off side, between cover and point.
		speed := rng.Range(20, 34) * mult
		vx = -speed * rng.Range(0.6, 0.95)
		vz = speed * rng.Range(-0.3, 0.3)
		if lofted {
			vy = rng.Range(6, 12)
		} else {
			vy = rng.Range(1, 4)
		}
	case ShotSweep:
		// Swept hard along the ground, fine on the leg side.
		speed := rng.Range(22, 36) * mult
		vx = speed * rng.Range(0.5, 0.85)
		vz = speed * rng.Range(0.1, 0.5)
		vy = rng.Range(0.5, 2)
	case ShotLoftedDrive:
		// Always aerial, over the bowler's head.
		speed := rng.Range(24, 38) * mult
		vx = rng.Range(-3, 3)
		vz = -speed
		vy = rng.Range(9, 16)
	case ShotBlock:
		fallthrough
	default:
		// Dead bat: drops softly in front.
		speed := rng.Range(3, 8) * mult
		vx = rng.Range(-1, 1)
		vz = -speed
		vy = rng.Range(0.5, 2)
	}

	return NewVec3(vx, math.Max(vy, 1), vz), true
}
