package owner

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Record is the persisted form of a Registry.
type Record struct {
	NextOwnerID   int           `yaml:"next_owner_id" json:"nextOwnerId"`
	LocalPlayerID int           `yaml:"local_player_id" json:"localPlayerId"`
	Owners        []OwnerRecord `yaml:"owners" json:"owners"`
}

// OwnerRecord is one persisted owner. A missing colour keeps the fallback.
type OwnerRecord struct {
	ID    int       `yaml:"owner_id" json:"owner_id"`
	Type  string    `yaml:"type" json:"type"`
	Name  string    `yaml:"name" json:"name"`
	Team  int       `yaml:"team_id" json:"team_id"`
	Color []float64 `yaml:"color,flow,omitempty" json:"color,omitempty"`
}

// ToRecord snapshots the registry.
func (r *Registry) ToRecord() Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec := Record{
		NextOwnerID:   r.nextID,
		LocalPlayerID: r.localPlayerID,
		Owners:        make([]OwnerRecord, 0, len(r.owners)),
	}
	for _, o := range r.owners {
		rec.Owners = append(rec.Owners, OwnerRecord{
			ID:    o.ID,
			Type:  o.Type.String(),
			Name:  o.Name,
			Team:  o.Team,
			Color: []float64{o.Color[0], o.Color[1], o.Color[2]},
		})
	}
	return rec
}

// FromRecord replaces the registry contents. The next id is advanced past
// the largest restored id so ids are never handed out twice.
func (r *Registry) FromRecord(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()

	if rec.NextOwnerID > 0 {
		r.nextID = rec.NextOwnerID
	}
	if rec.LocalPlayerID > 0 {
		r.localPlayerID = rec.LocalPlayerID
	}
	for _, or := range rec.Owners {
		info := Info{
			ID:    or.ID,
			Type:  ParseType(or.Type),
			Name:  or.Name,
			Team:  or.Team,
			Color: FallbackColor,
		}
		if len(or.Color) >= 3 {
			info.Color = Color{or.Color[0], or.Color[1], or.Color[2]}
		}
		r.index[info.ID] = len(r.owners)
		r.owners = append(r.owners, info)
		if info.ID >= r.nextID {
			r.nextID = info.ID + 1
		}
	}
}

// EncodeYAML encodes the registry record.
func (r *Registry) EncodeYAML() ([]byte, error) {
	out, err := yaml.Marshal(r.ToRecord())
	if err != nil {
		return nil, fmt.Errorf("encode owner registry: %w", err)
	}
	return out, nil
}

// DecodeYAML decodes a record produced by EncodeYAML into the registry.
func (r *Registry) DecodeYAML(data []byte) error {
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode owner registry: %w", err)
	}
	r.FromRecord(rec)
	return nil
}
