// Package partition splits extracted rows into named process groups.
package partition

import (
	"strings"

	"github.com/KevinLopezPastor/qmc-agent/pkg/models"
)

// MatchKind selects how a group claims rows.
type MatchKind string

const (
	// MatchTag claims a row when the group pattern appears as a substring
	// of the row's tag field.
	MatchTag MatchKind = "tag"
	// MatchPrefix claims a row when the row name, trimmed and lower-cased,
	// starts with the group pattern.
	MatchPrefix MatchKind = "prefix"
)

// Group is one monitored process: an alias shown in reports plus the pattern
// that claims rows for it.
type Group struct {
	Alias   string    `yaml:"alias"`
	Pattern string    `yaml:"pattern"`
	Match   MatchKind `yaml:"match"`
}

// Matches reports whether the row belongs to this group.
func (g Group) Matches(row models.TaskRow) bool {
	switch g.Match {
	case MatchPrefix:
		name := strings.ToLower(strings.TrimSpace(row.Name))
		return strings.HasPrefix(name, strings.ToLower(g.Pattern))
	default:
		return strings.Contains(row.TagString(), g.Pattern)
	}
}

// Partition assigns rows to the configured groups. Every configured alias is
// present in the result, even with no rows. A row may land in more than one
// group under the tag matcher (tags can combine); rows matching no group are
// dropped.
func Partition(rows []models.TaskRow, groups []Group) map[string][]models.TaskRow {
	out := make(map[string][]models.TaskRow, len(groups))
	for _, g := range groups {
		out[g.Alias] = []models.TaskRow{}
	}
	for _, row := range rows {
		for _, g := range groups {
			if g.Matches(row) {
				out[g.Alias] = append(out[g.Alias], row)
			}
		}
	}
	return out
}

// Aliases returns the configured group aliases in declaration order. The
// analyzer uses this ordering to stagger collaborator calls.
func Aliases(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Alias
	}
	return out
}

// Filter keeps only the groups whose alias appears in keep. An empty keep
// list returns groups unchanged.
func Filter(groups []Group, keep []string) []Group {
	if len(keep) == 0 {
		return groups
	}
	wanted := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		wanted[strings.TrimSpace(k)] = struct{}{}
	}
	var out []Group
	for _, g := range groups {
		if _, ok := wanted[g.Alias]; ok {
			out = append(out, g)
		}
	}
	return out
}
