package game

import "math"

// Ball is the point-mass flight model: gravity, a damped pitch bounce with a
// small seam deviation, post-shot bounces, and outfield rolling friction.
// The client mirror steps the same model with the same seed.
type Ball struct {
	Position Vec3
	Velocity Vec3

	Active     bool
	HasBounced bool
	HasBeenHit bool
	Settled    bool

	rolling bool
}

func NewBall() *Ball {
	return &Ball{}
}

func (b *Ball) Reset() {
	*b = Ball{}
}

// Launch starts a delivery from the release point.
func (b *Ball) Launch(pos, vel Vec3) {
	b.Position = pos
	b.Velocity = vel
	b.Active = true
	b.HasBounced = false
	b.HasBeenHit = false
	b.Settled = false
	b.rolling = false
}

// HitByBat replaces the ball's velocity with the shot's exit velocity.
func (b *Ball) HitByBat(vel Vec3) {
	b.Velocity = vel
	b.HasBeenHit = true
	b.HasBounced = false
}

// Update advances the simulation by dt seconds. The rng drives the seam
// deviation on the pitch bounce, so a seeded source reproduces the flight.
func (b *Ball) Update(dt float64, rng *RNG) {
	if !b.Active || b.Settled {
		return
	}

	b.Velocity.Y += Gravity * dt
	b.Position = b.Position.Plus(b.Velocity.Times(dt))

	if b.Position.Y <= BallRadius {
		b.Position.Y = BallRadius

		if b.HasBeenHit {
			// Keep most horizontal pace, kill most of the vertical.
			b.Velocity.Y *= -0.35
			b.Velocity.X *= 0.95
			b.Velocity.Z *= 0.95

			if math.Abs(b.Velocity.Y) < 0.4 {
				b.Velocity.Y = 0
				b.rolling = true
			}
		} else {
			// Pitch bounce before the batsman, with seam deviation.
			b.Velocity.Y *= -0.4
			if math.Abs(b.Velocity.Y) < 0.3 {
				b.Velocity.Y = 0.3
			}
			b.HasBounced = true
			b.Velocity.X += (rng.Float64() - 0.5) * 0.3
		}
	}

	// Outfield rolling friction: ~2.5 m/s² deceleration once the ball is
	// down, until it settles.
	if b.HasBeenHit && b.Position.Y <= BallRadius+0.05 {
		groundSpeed := b.Velocity.GroundSpeed()
		const frictionDecel = 2.5
		if groundSpeed > 0.3 {
			factor := math.Max(0, 1-(frictionDecel*dt)/groundSpeed)
			b.Velocity.X *= factor
			b.Velocity.Z *= factor
		} else {
			b.Velocity.X = 0
			b.Velocity.Z = 0
			b.Settled = true
		}
	}
}

func (b *Ball) DistanceFromCenter() float64 {
	return distance2D(b.Position.X, b.Position.Z, 0, 0)
}

func (b *Ball) IsPastBoundary() bool {
	return b.DistanceFromCenter() >= BoundaryRadius
}

// IsSix: cleared the rope in the air.
func (b *Ball) IsSix() bool {
	return b.IsPastBoundary() && b.Position.Y > 1.0
}

// IsFour: reached the rope along the ground.
func (b *Ball) IsFour() bool {
	return b.IsPastBoundary() && b.Position.Y <= 1.0
}
