// Package ecs is the minimal entity store the simulation core runs against.
// Entities carry optional typed components; systems query by capability.
//
// A World is driven from a single simulation goroutine and is not safe for
// concurrent mutation.
package ecs

import "slices"

// EntityID identifies an entity. Zero is never assigned.
type EntityID uint32

// Kind is a component capability bit used by queries.
type Kind uint16

const (
	KindTransform Kind = 1 << iota
	KindUnit
	KindMovement
	KindAttack
	KindAttackTarget
	KindHoldMode
	KindBuilding
)

// Entity holds at most one component of each kind.
type Entity struct {
	id EntityID

	transform    *Transform
	unit         *Unit
	movement     *Movement
	attack       *Attack
	attackTarget *AttackTarget
	holdMode     *HoldMode
	building     *Building
}

// ID returns the entity id.
func (e *Entity) ID() EntityID { return e.id }

// Kinds returns the capability mask of the components currently attached.
func (e *Entity) Kinds() Kind {
	var k Kind
	if e.transform != nil {
		k |= KindTransform
	}
	if e.unit != nil {
		k |= KindUnit
	}
	if e.movement != nil {
		k |= KindMovement
	}
	if e.attack != nil {
		k |= KindAttack
	}
	if e.attackTarget != nil {
		k |= KindAttackTarget
	}
	if e.holdMode != nil {
		k |= KindHoldMode
	}
	if e.building != nil {
		k |= KindBuilding
	}
	return k
}

// Has reports whether every kind in mask is attached.
func (e *Entity) Has(mask Kind) bool { return e.Kinds()&mask == mask }

func (e *Entity) Transform() *Transform       { return e.transform }
func (e *Entity) Unit() *Unit                 { return e.unit }
func (e *Entity) Movement() *Movement         { return e.movement }
func (e *Entity) Attack() *Attack             { return e.attack }
func (e *Entity) AttackTarget() *AttackTarget { return e.attackTarget }
func (e *Entity) HoldMode() *HoldMode         { return e.holdMode }
func (e *Entity) Building() *Building         { return e.building }

// AddTransform attaches (or returns the existing) transform.
func (e *Entity) AddTransform() *Transform {
	if e.transform == nil {
		e.transform = &Transform{Scale: Vec3{X: 1, Y: 1, Z: 1}}
	}
	return e.transform
}

func (e *Entity) AddUnit() *Unit {
	if e.unit == nil {
		e.unit = &Unit{Speed: 1}
	}
	return e.unit
}

func (e *Entity) AddMovement() *Movement {
	if e.movement == nil {
		e.movement = &Movement{}
	}
	return e.movement
}

func (e *Entity) AddAttack() *Attack {
	if e.attack == nil {
		e.attack = &Attack{Range: 2, MeleeRange: 1.5}
	}
	return e.attack
}

func (e *Entity) AddAttackTarget() *AttackTarget {
	if e.attackTarget == nil {
		e.attackTarget = &AttackTarget{}
	}
	return e.attackTarget
}

func (e *Entity) AddHoldMode() *HoldMode {
	if e.holdMode == nil {
		e.holdMode = &HoldMode{}
	}
	return e.holdMode
}

func (e *Entity) AddBuilding() *Building {
	if e.building == nil {
		e.building = &Building{}
	}
	return e.building
}

func (e *Entity) RemoveMovement()     { e.movement = nil }
func (e *Entity) RemoveAttackTarget() { e.attackTarget = nil }
func (e *Entity) RemoveHoldMode()     { e.holdMode = nil }

// World holds all entities.
type World struct {
	entities map[EntityID]*Entity
	nextID   EntityID
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		entities: make(map[EntityID]*Entity),
		nextID:   1,
	}
}

// Spawn creates an entity with no components.
func (w *World) Spawn() *Entity {
	e := &Entity{id: w.nextID}
	w.entities[e.id] = e
	w.nextID++
	return e
}

// Entity returns the entity or nil when it does not exist.
func (w *World) Entity(id EntityID) *Entity {
	return w.entities[id]
}

// Despawn removes the entity. Unknown ids are ignored.
func (w *World) Despawn(id EntityID) {
	delete(w.entities, id)
}

// EntitiesWith returns every entity carrying all the given kinds, ordered by
// id so that callers iterate deterministically.
func (w *World) EntitiesWith(kinds ...Kind) []*Entity {
	var mask Kind
	for _, k := range kinds {
		mask |= k
	}
	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		if e.Has(mask) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *Entity) int { return int(a.id) - int(b.id) })
	return out
}

// Len returns the number of live entities.
func (w *World) Len() int { return len(w.entities) }
