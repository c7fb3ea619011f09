package camera

// Config tunes a Controller.
type Config struct {
	Distance            float64
	InitialElevationDeg float64
	AutoRotate          bool
	AutoRotateSpeed     float64 // degrees per tick
	DragCooldownTicks   int     // ticks after a drag before auto-rotate resumes
	TransitionTicks     int     // ticks to ease from tracking back to orbit
}

// Input is what the controller needs from the scene for one tick.
type Input struct {
	Tracking         bool // user has tracking enabled
	Selection        Selection
	GlobeRotationDeg float64
	Idle             bool // nothing selected and tracking off
}

type transition struct {
	from  Pose
	step  int
	total int
}

// Controller holds camera state across ticks.
type Controller struct {
	cfg          Config
	orbit        Orbit
	mode         Mode
	pose         Pose
	dragCooldown int
	trans        *transition
}

// NewController creates a controller in orbit mode.
func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg: cfg,
		orbit: Orbit{
			ElevationDeg: clamp(cfg.InitialElevationDeg, -maxElevationDeg, maxElevationDeg),
			Distance:     cfg.Distance,
		},
		mode: ModeOrbit,
	}
	c.pose = c.orbit.Pose()
	return c
}

// Mode returns the effective camera mode of the last update.
func (c *Controller) Mode() Mode { return c.mode }

// Pose returns the pose computed by the last update.
func (c *Controller) Pose() Pose { return c.pose }

// Orbit returns the user/auto orbit (before globe rotation is applied).
func (c *Controller) Orbit() Orbit { return c.orbit }

// Transitioning reports whether the camera is easing back to orbit.
func (c *Controller) Transitioning() bool { return c.trans != nil }

// SetDistance changes the orbit distance.
func (c *Controller) SetDistance(d float64) {
	c.orbit.Distance = d
}

// Drag rotates the orbit by user input and pauses auto-rotation.
func (c *Controller) Drag(dAzDeg, dElDeg float64) {
	c.orbit.AzimuthDeg = WrapDegrees(c.orbit.AzimuthDeg + dAzDeg)
	c.orbit.ElevationDeg = clamp(c.orbit.ElevationDeg+dElDeg, -maxElevationDeg, maxElevationDeg)
	c.dragCooldown = c.cfg.DragCooldownTicks
}

// Update advances the camera one tick and returns the new pose.
//
// Entering tracking snaps to the tracking pose. Leaving it eases back to
// the orbit over TransitionTicks, so the camera never jumps.
func (c *Controller) Update(in Input) Pose {
	if c.dragCooldown > 0 {
		c.dragCooldown--
	} else if c.cfg.AutoRotate && in.Idle {
		c.orbit.AzimuthDeg = WrapDegrees(c.orbit.AzimuthDeg + c.cfg.AutoRotateSpeed)
	}

	want := ModeOrbit
	if in.Tracking && in.Selection.Valid {
		want = ModeTracking
	}

	view := c.orbit
	view.AzimuthDeg = WrapDegrees(view.AzimuthDeg - in.GlobeRotationDeg)
	goal := ComputePose(want, in.Selection, view)

	switch {
	case want == ModeTracking:
		c.trans = nil
		c.pose = goal
	case c.mode == ModeTracking && c.cfg.TransitionTicks > 0:
		c.trans = &transition{from: c.pose, total: c.cfg.TransitionTicks}
		c.pose = c.stepTransition(goal)
	case c.trans != nil:
		c.pose = c.stepTransition(goal)
	default:
		c.pose = goal
	}

	c.mode = want
	return c.pose
}

func (c *Controller) stepTransition(goal Pose) Pose {
	c.trans.step++
	if c.trans.step >= c.trans.total {
		c.trans = nil
		return goal
	}
	t := easeOutCubic(float64(c.trans.step) / float64(c.trans.total))
	return blendOrbit(c.trans.from, goal, t)
}

// blendOrbit moves the camera along a spherical path so that the
// transition swings around the globe instead of cutting through it.
func blendOrbit(from, goal Pose, t float64) Pose {
	a := orbitOf(from.Position)
	b := orbitOf(goal.Position)
	o := Orbit{
		AzimuthDeg:   lerpAngle(a.AzimuthDeg, b.AzimuthDeg, t),
		ElevationDeg: lerp(a.ElevationDeg, b.ElevationDeg, t),
		Distance:     lerp(a.Distance, b.Distance, t),
	}
	pose := o.Pose()
	pose.Target = lerpVec(from.Target, goal.Target, t)
	return pose
}
