package owner

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestRegistry_RegisterAssignsFreshIDs(t *testing.T) {
	r := NewRegistry()
	a := r.Register(TypePlayer, "Alice")
	b := r.Register(TypeAI, "")
	if a != 1 || b != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", a, b)
	}
	if r.Name(b) != "Owner2" {
		t.Fatalf("empty name should default, got %q", r.Name(b))
	}
	if r.Name(99) != "Unknown" {
		t.Fatal("unknown owner should be named Unknown")
	}
	if r.Type(99) != TypeNeutral {
		t.Fatal("unknown owner should be neutral")
	}
}

func TestRegistry_RegisterWithIDAdvancesNextID(t *testing.T) {
	r := NewRegistry()
	r.RegisterWithID(5, TypeAI, "Raiders")
	r.RegisterWithID(5, TypePlayer, "Duplicate")
	if r.Type(5) != TypeAI || r.Name(5) != "Raiders" {
		t.Fatal("duplicate registration should be ignored")
	}
	if id := r.Register(TypePlayer, ""); id != 6 {
		t.Fatalf("next id should follow the fixed id, got %d", id)
	}
}

func TestRegistry_ClearResets(t *testing.T) {
	r := NewRegistry()
	r.Register(TypePlayer, "")
	r.SetLocalPlayerID(7)
	r.Clear()
	if len(r.Owners()) != 0 || r.LocalPlayerID() != 1 {
		t.Fatal("clear should drop owners and reset local player")
	}
	if id := r.Register(TypePlayer, ""); id != 1 {
		t.Fatalf("ids should restart at 1 after clear, got %d", id)
	}
}

func TestRegistry_Alliances(t *testing.T) {
	r := NewRegistry()
	p := r.Register(TypePlayer, "")
	ally := r.Register(TypeAI, "")
	foe := r.Register(TypeAI, "")
	loner := r.Register(TypeAI, "")
	r.SetTeam(p, 1)
	r.SetTeam(ally, 1)
	r.SetTeam(foe, 2)

	if !r.AreAllies(p, ally) || r.AreEnemies(p, ally) {
		t.Fatal("same non-zero team should be allied")
	}
	if r.AreAllies(p, foe) || !r.AreEnemies(p, foe) {
		t.Fatal("different teams should be enemies")
	}
	if !r.AreAllies(loner, loner) {
		t.Fatal("an owner is always its own ally")
	}
	if r.AreAllies(loner, NeutralID) {
		t.Fatal("team 0 never allies with other owners")
	}

	if got := r.AlliesOf(p); len(got) != 1 || got[0] != ally {
		t.Fatalf("allies of player: %v", got)
	}
	if got := r.AlliesOf(loner); len(got) != 0 {
		t.Fatalf("team-less owner should have no allies, got %v", got)
	}
	if got := r.EnemiesOf(p); len(got) != 2 {
		t.Fatalf("player should have 2 enemies, got %v", got)
	}
}

func TestRegistry_AllianceSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRegistry()
	for i := 0; i < 12; i++ {
		id := r.Register(Type(rng.Intn(3)), "")
		r.SetTeam(id, rng.Intn(4))
	}
	for a := 0; a <= 13; a++ {
		for b := 0; b <= 13; b++ {
			if r.AreAllies(a, b) != r.AreAllies(b, a) {
				t.Fatalf("alliance not symmetric for %d,%d", a, b)
			}
			if a != b && r.AreAllies(a, b) == r.AreEnemies(a, b) {
				t.Fatalf("allies and enemies must be exclusive for %d,%d", a, b)
			}
		}
	}
}

func TestRegistry_Colors(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Register(TypeAI, "")
	}
	if r.Color(2) != (Color{1.00, 0.30, 0.30}) {
		t.Fatalf("unexpected default colour for owner 2: %v", r.Color(2))
	}
	if r.Color(5) != FallbackColor || r.Color(42) != FallbackColor {
		t.Fatal("owners past the palette and unknown owners use the fallback")
	}
	r.SetColor(1, Color{0, 0, 0})
	if r.Color(1) != (Color{}) {
		t.Fatal("SetColor should override")
	}
}

func TestRegistry_RecordRoundTrip(t *testing.T) {
	r := NewRegistry()
	p := r.Register(TypePlayer, "Blue")
	e := r.Register(TypeAI, "Red")
	r.SetTeam(p, 1)
	r.SetTeam(e, 2)
	r.SetLocalPlayerID(p)

	data, err := r.EncodeYAML()
	if err != nil {
		t.Fatal(err)
	}
	back := NewRegistry()
	if err := back.DecodeYAML(data); err != nil {
		t.Fatal(err)
	}
	if back.Name(e) != "Red" || back.Team(e) != 2 || !back.IsAI(e) {
		t.Fatal("owner fields should survive the record")
	}
	if id := back.Register(TypeAI, ""); id != 3 {
		t.Fatalf("restored registry should continue ids at 3, got %d", id)
	}
}

func TestRegistry_FromRecordRecomputesNextID(t *testing.T) {
	r := NewRegistry()
	r.FromRecord(Record{
		NextOwnerID: 2,
		Owners: []OwnerRecord{
			{ID: 9, Type: "PLAYER", Name: "Late"},
			{ID: 3, Type: "goblin"},
		},
	})
	if !r.IsPlayer(9) {
		t.Fatal("type strings should parse case-insensitively")
	}
	if r.Type(3) != TypeNeutral {
		t.Fatal("unknown type strings should be neutral")
	}
	if r.Color(9) != FallbackColor {
		t.Fatal("missing colour should use the fallback")
	}
	if id := r.Register(TypeAI, ""); id != 10 {
		t.Fatalf("next id should pass the largest restored id, got %d", id)
	}
}
