package sim

import (
	"fmt"
	"strings"
)

// LogEntry is one recorded gameplay event.
type LogEntry struct {
	Tick     int
	Entity   string  // label e.g. "U12", or "--" for global events
	Owner    string  // owner name, or "--"
	Category string  // order, path, move, fog, ai
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] U3   Blue   path   applied   4 waypoints
func (e LogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-5s %-8s %-6s %-14s %s",
		e.Tick, e.Entity, e.Owner, e.Category, e.Key, e.Value)
}

// SimLog collects structured events during a run. It is unbounded and
// meant for tests and reports rather than the UI.
type SimLog struct {
	entries []LogEntry
	verbose bool
}

// NewSimLog creates a SimLog. Verbose mode also keeps per-tick movement
// samples.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

func (sl *SimLog) Add(tick int, entity, owner, category, key, value string, numVal float64) {
	sl.entries = append(sl.entries, LogEntry{
		Tick:     tick,
		Entity:   entity,
		Owner:    owner,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (sl *SimLog) AddVerbose(tick int, entity, owner, category, key, value string, numVal float64) {
	if !sl.verbose {
		return
	}
	sl.Add(tick, entity, owner, category, key, value, numVal)
}

func (sl *SimLog) Entries() []LogEntry { return sl.entries }

func (sl *SimLog) Len() int { return len(sl.entries) }

// Filter returns entries matching category and key. Empty matches anything.
func (sl *SimLog) Filter(category, key string) []LogEntry {
	var out []LogEntry
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterEntity returns entries for one entity label.
func (sl *SimLog) FilterEntity(label string) []LogEntry {
	var out []LogEntry
	for _, e := range sl.entries {
		if e.Entity == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick].
func (sl *SimLog) FilterTickRange(fromTick, toTick int) []LogEntry {
	var out []LogEntry
	for _, e := range sl.entries {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

func (sl *SimLog) Count(category, key string) int {
	return len(sl.Filter(category, key))
}

// LastOf returns the most recent entry matching category and key.
func (sl *SimLog) LastOf(category, key string) (LogEntry, bool) {
	entries := sl.Filter(category, key)
	if len(entries) == 0 {
		return LogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry reports whether some entry matches category, key and contains
// valueSubstr.
func (sl *SimLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Tail returns up to n of the newest entries, oldest first.
func (sl *SimLog) Tail(n int) []LogEntry {
	if n >= len(sl.entries) {
		return sl.entries
	}
	return sl.entries[len(sl.entries)-n:]
}

// Format returns the full log, one line per entry.
func (sl *SimLog) Format() string {
	return formatEntries(sl.entries)
}

// FormatRange returns the log limited to a tick range.
func (sl *SimLog) FormatRange(fromTick, toTick int) string {
	return formatEntries(sl.FilterTickRange(fromTick, toTick))
}

func formatEntries(es []LogEntry) string {
	var sb strings.Builder
	for _, e := range es {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
