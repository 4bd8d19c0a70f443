// Package ai drives computer-controlled owners. Each owner gets a Controller
// that periodically snapshots the world, runs its behaviors in priority
// order and turns their output into command service orders.
package ai

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Garsondee/skirmish-core/internal/command"
	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/logger"
)

// Context is the per-owner state shared by behaviors across thinks.
type Context struct {
	OwnerID  int
	Now      float64 // seconds of simulated time
	Rally    ecs.Vec3
	HasRally bool
	Tuning   Tuning

	// Retreating marks units already sent back; other behaviors leave them be.
	Retreating map[ecs.EntityID]bool
}

// Controller owns one AI owner's scheduler and think timer.
type Controller struct {
	ctx        Context
	sched      *Scheduler
	sinceThink float64
	lastRan    []string
	log        *logrus.Entry
}

// NewController builds a controller running Retreat and Attack.
func NewController(ownerID int, t Tuning) *Controller {
	return NewControllerWith(ownerID, t, &Retreat{}, &Attack{})
}

// NewControllerWith builds a controller with an explicit behavior set.
func NewControllerWith(ownerID int, t Tuning, bs ...Behavior) *Controller {
	return &Controller{
		ctx: Context{
			OwnerID:    ownerID,
			Tuning:     t,
			Retreating: make(map[ecs.EntityID]bool),
		},
		sched: NewScheduler(bs...),
		log:   logger.For("ai").WithField("owner", ownerID),
	}
}

// OwnerID returns the controlled owner.
func (c *Controller) OwnerID() int { return c.ctx.OwnerID }

// SetRally sets the point wounded units fall back to.
func (c *Controller) SetRally(p ecs.Vec3) {
	c.ctx.Rally, c.ctx.HasRally = p, true
}

// Context exposes the shared behavior state.
func (c *Controller) Context() *Context { return &c.ctx }

// LastBehaviors names the behaviors that executed in the most recent think.
func (c *Controller) LastBehaviors() []string { return c.lastRan }

// Think advances the clock by dt and, once the think interval has elapsed,
// evaluates the behaviors against a fresh snapshot.
func (c *Controller) Think(world *ecs.World, rel Relations, dt float64) []Command {
	c.ctx.Now += dt
	c.sinceThink += dt
	if c.sinceThink < c.ctx.Tuning.ThinkInterval {
		return nil
	}
	elapsed := c.sinceThink
	c.sinceThink = 0

	snap := BuildSnapshot(world, rel, c.ctx.OwnerID, c.ctx.Tuning.VisionFloor)
	live := make(map[ecs.EntityID]bool, len(snap.Friendlies))
	for _, f := range snap.Friendlies {
		live[f.ID] = true
	}
	for id := range c.ctx.Retreating {
		if !live[id] {
			delete(c.ctx.Retreating, id)
		}
	}

	cmds, ran := c.sched.Run(snap, &c.ctx, elapsed)
	c.lastRan = ran
	if len(ran) > 0 {
		c.log.WithFields(logrus.Fields{
			"behaviors": strings.Join(ran, ","),
			"commands":  len(cmds),
		}).Debug("think")
	}
	return cmds
}

// Commander is the slice of the command service the AI issues orders to.
type Commander interface {
	MoveUnits(world *ecs.World, units []ecs.EntityID, targets []ecs.Vec3, opts command.MoveOptions)
	AttackTarget(world *ecs.World, units []ecs.EntityID, targetID ecs.EntityID, chase bool)
}

// Apply hands each command to the command service.
func Apply(world *ecs.World, svc Commander, cmds []Command) {
	for _, c := range cmds {
		switch c.Kind {
		case CommandMove:
			opts := command.DefaultMoveOptions()
			opts.GroupMove = c.Group
			svc.MoveUnits(world, c.Units, c.Targets, opts)
		case CommandAttack:
			svc.AttackTarget(world, c.Units, c.TargetID, c.Chase)
		}
	}
}
