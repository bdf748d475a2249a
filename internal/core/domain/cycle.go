package domain

import (
	"slices"
	"strings"
)

// Severity classifies a cycle or simulation warning.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Cycle is an elementary cycle in the foreign-key graph. Tables holds the
// cycle in edge direction, rotated to start at the lexicographically smallest
// member; Key additionally folds mirror images so rotations and reversals of
// the same loop compare equal.
type Cycle struct {
	Tables          []string         `json:"tables"`
	Edges           []ForeignKeyEdge `json:"edges"`
	Severity        Severity         `json:"severity"`
	CascadeRisk     bool             `json:"cascade_risk"`
	RestrictPresent bool             `json:"restrict_present"`
	Key             string           `json:"-"`
}

// NewCycle normalizes and classifies a cycle from its ordered table list and
// the edges that compose it.
func NewCycle(tables []string, edges []ForeignKeyEdge) Cycle {
	rotated := rotateToSmallest(tables)
	c := Cycle{
		Tables: rotated,
		Edges:  edges,
		Key:    CanonicalCycleKey(tables),
	}
	for _, e := range edges {
		if e.OnDelete == ActionCascade {
			c.CascadeRisk = true
		}
		if e.OnDelete == ActionRestrict {
			c.RestrictPresent = true
		}
	}
	c.Severity = classifyCycle(len(rotated), c.CascadeRisk)
	return c
}

// classifyCycle is deterministic and unconfigurable: long chains and
// cascading loops are the ones that bite.
func classifyCycle(length int, cascade bool) Severity {
	switch {
	case length > 3 || (cascade && length > 2):
		return SeverityHigh
	case length == 3 || cascade:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// CanonicalCycleKey returns the canonical key for a cycle's table list:
// rotate to the lexicographically smallest member, then keep whichever of the
// forward and reversed rotated sequences sorts first. All rotations and the
// mirror image of the same loop produce the same key.
func CanonicalCycleKey(tables []string) string {
	forward := strings.Join(rotateToSmallest(tables), "->")
	reversed := slices.Clone(tables)
	slices.Reverse(reversed)
	backward := strings.Join(rotateToSmallest(reversed), "->")
	return min(forward, backward)
}

func rotateToSmallest(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	start := 0
	for i, t := range tables {
		if t < tables[start] {
			start = i
		}
	}
	out := make([]string, 0, len(tables))
	out = append(out, tables[start:]...)
	out = append(out, tables[:start]...)
	return out
}
