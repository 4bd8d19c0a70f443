// Package owner tracks the players and AIs that own units, their team
// assignment, and the alliance relation derived from it.
package owner

import (
	"slices"
	"strconv"
	"strings"
	"sync"
)

// NeutralID is the owner id of unowned entities. Registered ids start at 1.
const NeutralID = 0

// Type classifies an owner.
type Type int

const (
	TypePlayer Type = iota
	TypeAI
	TypeNeutral
)

func (t Type) String() string {
	switch t {
	case TypePlayer:
		return "player"
	case TypeAI:
		return "ai"
	default:
		return "neutral"
	}
}

// ParseType is case-insensitive; unknown strings map to TypeNeutral.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player":
		return TypePlayer
	case "ai":
		return TypeAI
	default:
		return TypeNeutral
	}
}

// Color is linear RGB in [0,1].
type Color [3]float64

// FallbackColor is used for owners beyond the first four and unknown ids.
var FallbackColor = Color{0.8, 0.9, 1.0}

func defaultColor(id int) Color {
	switch id {
	case 1:
		return Color{0.20, 0.55, 1.00}
	case 2:
		return Color{1.00, 0.30, 0.30}
	case 3:
		return Color{0.20, 0.80, 0.40}
	case 4:
		return Color{1.00, 0.80, 0.20}
	default:
		return FallbackColor
	}
}

// Info describes one owner. Team 0 means "no team".
type Info struct {
	ID    int
	Type  Type
	Name  string
	Team  int
	Color Color
}

// Registry is safe for concurrent use: the visibility job reads alliances
// while UI or scenario code may reassign teams.
type Registry struct {
	mu            sync.RWMutex
	owners        []Info
	index         map[int]int
	nextID        int
	localPlayerID int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.clearLocked()
	return r
}

// Clear drops every owner and resets id assignment.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Registry) clearLocked() {
	r.owners = nil
	r.index = make(map[int]int)
	r.nextID = 1
	r.localPlayerID = 1
}

// Register assigns the next free id. Ids are never reused.
func (r *Registry) Register(t Type, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.addLocked(id, t, name)
	return id
}

// RegisterWithID records an owner under a fixed id. Duplicate ids are ignored.
func (r *Registry) RegisterWithID(id int, t Type, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[id]; ok {
		return
	}
	r.addLocked(id, t, name)
	if id >= r.nextID {
		r.nextID = id + 1
	}
}

func (r *Registry) addLocked(id int, t Type, name string) {
	if name == "" {
		name = "Owner" + strconv.Itoa(id)
	}
	r.index[id] = len(r.owners)
	r.owners = append(r.owners, Info{ID: id, Type: t, Name: name, Color: defaultColor(id)})
}

func (r *Registry) lookup(id int) (*Info, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return &r.owners[i], true
}

func (r *Registry) SetLocalPlayerID(id int) {
	r.mu.Lock()
	r.localPlayerID = id
	r.mu.Unlock()
}

func (r *Registry) LocalPlayerID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.localPlayerID
}

// Type returns the owner type, TypeNeutral for unknown ids.
func (r *Registry) Type(id int) Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.lookup(id); ok {
		return o.Type
	}
	return TypeNeutral
}

func (r *Registry) IsPlayer(id int) bool { return r.Type(id) == TypePlayer }
func (r *Registry) IsAI(id int) bool     { return r.Type(id) == TypeAI }

// IsNeutral reports whether units of this owner are unowned scenery:
// the neutral id or a registered owner of TypeNeutral.
func (r *Registry) IsNeutral(id int) bool {
	if id == NeutralID {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.lookup(id)
	return ok && o.Type == TypeNeutral
}

// Known reports whether the id is registered.
func (r *Registry) Known(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// Name returns the display name, "Unknown" for unknown ids.
func (r *Registry) Name(id int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.lookup(id); ok {
		return o.Name
	}
	return "Unknown"
}

// Owners returns a copy of every owner in registration order.
func (r *Registry) Owners() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.owners)
}

func (r *Registry) idsOfType(t Type) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for _, o := range r.owners {
		if o.Type == t {
			out = append(out, o.ID)
		}
	}
	return out
}

func (r *Registry) PlayerIDs() []int { return r.idsOfType(TypePlayer) }
func (r *Registry) AIIDs() []int     { return r.idsOfType(TypeAI) }

// SetTeam assigns a team. Unknown owners are ignored.
func (r *Registry) SetTeam(id, team int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.lookup(id); ok {
		o.Team = team
	}
}

// Team returns the owner's team, 0 for unknown owners.
func (r *Registry) Team(id int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.teamLocked(id)
}

func (r *Registry) teamLocked(id int) int {
	if o, ok := r.lookup(id); ok {
		return o.Team
	}
	return 0
}

// AreAllies: an owner is always allied with itself; otherwise both must
// share the same non-zero team.
func (r *Registry) AreAllies(a, b int) bool {
	if a == b {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return alliedLocked(r.teamLocked(a), r.teamLocked(b))
}

// AreEnemies is the complement of AreAllies for distinct owners.
func (r *Registry) AreEnemies(a, b int) bool {
	return a != b && !r.AreAllies(a, b)
}

func alliedLocked(teamA, teamB int) bool {
	return teamA != 0 && teamA == teamB
}

// AlliesOf lists other owners on the same non-zero team.
func (r *Registry) AlliesOf(id int) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	team := r.teamLocked(id)
	if team == 0 {
		return nil
	}
	var out []int
	for _, o := range r.owners {
		if o.ID != id && o.Team == team {
			out = append(out, o.ID)
		}
	}
	return out
}

// EnemiesOf lists every registered owner that is not an ally.
func (r *Registry) EnemiesOf(id int) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	team := r.teamLocked(id)
	var out []int
	for _, o := range r.owners {
		if o.ID != id && !alliedLocked(team, o.Team) {
			out = append(out, o.ID)
		}
	}
	return out
}

func (r *Registry) SetColor(id int, c Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.lookup(id); ok {
		o.Color = c
	}
}

// Color returns the owner colour, FallbackColor for unknown ids.
func (r *Registry) Color(id int) Color {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.lookup(id); ok {
		return o.Color
	}
	return FallbackColor
}
