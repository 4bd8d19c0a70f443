package command

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

type groupMember struct {
	id       ecs.EntityID
	tr       *ecs.Transform
	mv       *ecs.Movement
	target   ecs.Vec3
	engaged  bool
	speed    float64
	spawn    ecs.SpawnType
	toTarget float64
}

func splitMembers(ms []groupMember) ([]ecs.EntityID, []ecs.Vec3) {
	ids := make([]ecs.EntityID, len(ms))
	targets := make([]ecs.Vec3, len(ms))
	for i, m := range ms {
		ids[i], targets[i] = m.id, m.target
	}
	return ids, targets
}

// moveGroup sends members that are close, fast or stragglers straight to
// their targets and paths the rest once, from a leader, sharing the result
// as a formation offset.
func (s *Service) moveGroup(world *ecs.World, units []ecs.EntityID, targets []ecs.Vec3, opts MoveOptions) {
	t := &s.tuning
	single := opts
	single.GroupMove = false

	members := make([]groupMember, 0, len(units))
	for i, id := range units {
		e := world.Entity(id)
		if e == nil || meleeLocked(e) {
			continue
		}
		releaseHold(e)
		tr := e.Transform()
		if tr == nil {
			continue
		}
		mv := e.AddMovement()

		engaged := e.AttackTarget() != nil
		if opts.ClearAttackIntent {
			e.RemoveAttackTarget()
			engaged = false
		}
		speed, spawn := 1.0, ecs.SpawnArcher
		if u := e.Unit(); u != nil {
			speed = math.Max(0.1, u.Speed)
			spawn = u.SpawnType
		}
		members = append(members, groupMember{
			id: id, tr: tr, mv: mv, target: targets[i],
			engaged: engaged, speed: speed, spawn: spawn,
		})
	}

	switch len(members) {
	case 0:
		return
	case 1:
		s.MoveUnits(world, []ecs.EntityID{members[0].id}, []ecs.Vec3{members[0].target}, single)
		return
	}

	moving := members[:0]
	for _, m := range members {
		if !m.engaged {
			moving = append(moving, m)
		}
	}
	if len(moving) == 0 {
		return
	}

	if s.pf != nil {
		for _, m := range moving {
			if !s.pf.IsWalkable(s.WorldToGrid(m.target.X, m.target.Z)) {
				s.log.WithFields(logrus.Fields{
					"entity": m.id,
					"x":      m.target.X,
					"z":      m.target.Z,
				}).Warn("group move aborted: target not walkable")
				return
			}
		}
	}

	n := float64(len(moving))
	var posCX, posCZ, speedSum float64
	for _, m := range moving {
		posCX += m.tr.Position.X
		posCZ += m.tr.Position.Z
		speedSum += m.speed
	}
	posCX, posCZ = posCX/n, posCZ/n
	avgSpeed := speedSum / n

	var targetDistSum, scatterSum, maxTargetDist float64
	for i := range moving {
		m := &moving[i]
		m.toTarget = math.Sqrt(distSq(m.tr.Position.X, m.tr.Position.Z, m.target.X, m.target.Z))
		targetDistSum += m.toTarget
		scatterSum += math.Sqrt(distSq(m.tr.Position.X, m.tr.Position.Z, posCX, posCZ))
		maxTargetDist = math.Max(maxTargetDist, m.toTarget)
	}

	near := clamp(targetDistSum/n*t.NearThresholdFactor, t.NearThresholdMin, t.NearThresholdMax)
	if maxTargetDist <= near {
		ids, tgts := splitMembers(moving)
		s.MoveUnits(world, ids, tgts, single)
		return
	}

	scatter := math.Max(scatterSum/n, t.MinScatterThreshold)
	var direct, regroup []groupMember
	for _, m := range moving {
		toCentroid := math.Sqrt(distSq(m.tr.Position.X, m.tr.Position.Z, posCX, posCZ))
		fast := m.speed >= avgSpeed+t.FastSpeedMargin || t.isFastType(m.spawn)
		switch {
		case m.toTarget <= near,
			fast && m.toTarget <= near*t.FastReachFactor,
			toCentroid > scatter*t.ScatterFactor && m.toTarget <= near*t.ScatterReachFactor:
			direct = append(direct, m)
		default:
			regroup = append(regroup, m)
		}
	}

	if len(direct) > 0 {
		ids, tgts := splitMembers(direct)
		s.MoveUnits(world, ids, tgts, single)
	}
	if len(regroup) <= 1 {
		if len(regroup) == 1 {
			s.MoveUnits(world, []ecs.EntityID{regroup[0].id}, []ecs.Vec3{regroup[0].target}, single)
		}
		return
	}

	s.regroup(regroup, opts)
}

// regroup issues one shared search for members, from the member whose
// target is nearest their average target.
func (s *Service) regroup(members []groupMember, opts MoveOptions) {
	var avgX, avgZ float64
	for _, m := range members {
		avgX += m.target.X
		avgZ += m.target.Z
	}
	avgX /= float64(len(members))
	avgZ /= float64(len(members))

	leader := 0
	best := math.Inf(1)
	for i, m := range members {
		if d := distSq(m.target.X, m.target.Z, avgX, avgZ); d < best {
			best, leader = d, i
		}
	}
	lead := members[leader]

	for _, m := range members {
		mv := m.mv
		mv.GoalX, mv.GoalZ = m.target.X, m.target.Z
		s.ClearPendingRequest(m.id)
		mv.TargetX, mv.TargetZ = m.tr.Position.X, m.tr.Position.Z
		mv.HasTarget = false
		mv.VX, mv.VZ = 0, 0
		mv.Path = nil
		mv.PathPending = false
		mv.PendingRequestID = 0
	}

	headStraight := func(withStamp bool) {
		for _, m := range members {
			m.mv.TargetX, m.mv.TargetZ = m.target.X, m.target.Z
			m.mv.HasTarget = true
			if withStamp {
				stamp(m.mv, m.target)
			}
		}
	}

	if s.pf == nil {
		headStraight(false)
		return
	}
	start := s.WorldToGrid(lead.tr.Position.X, lead.tr.Position.Z)
	end := s.WorldToGrid(lead.target.X, lead.target.Z)
	if start == end {
		headStraight(false)
		return
	}
	if opts.AllowDirectFallback && start.Manhattan(end) <= s.tuning.DirectPathThreshold {
		headStraight(true)
		return
	}

	reqID := s.nextID.Add(1) - 1
	rec := &pendingRequest{
		entity:  lead.id,
		target:  lead.target,
		options: opts,
		members: make([]ecs.EntityID, 0, len(members)),
		targets: make([]ecs.Vec3, 0, len(members)),
	}
	for _, m := range members {
		m.mv.PathPending = true
		m.mv.PendingRequestID = reqID
		stamp(m.mv, m.target)
		rec.members = append(rec.members, m.id)
		rec.targets = append(rec.targets, m.target)
	}

	s.mu.Lock()
	s.pending[reqID] = rec
	for _, id := range rec.members {
		s.byEntity[id] = reqID
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"leader": lead.id, "members": len(members)}).Debug("group path requested")
	s.submit(reqID, start, end)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
