package config

import (
	"fmt"

	"journalclerk/internal/compaction"
)

// ReloadStrategy translates the YAML tag->name map into the closed
// compaction.StrategyKind sum the core package matches on.
func (c ClerkConfig) ReloadStrategy() (compaction.ReloadStrategy, error) {
	strategy := make(compaction.ReloadStrategy, len(c.Strategies))
	for tag, name := range c.Strategies {
		switch name {
		case "retain":
			strategy[compaction.Tag(tag)] = compaction.Retain
		case "recalc":
			strategy[compaction.Tag(tag)] = compaction.Recalc
		case "recovr":
			strategy[compaction.Tag(tag)] = compaction.Recovr
		default:
			return nil, fmt.Errorf("config: unknown reload strategy %q for tag %q", name, tag)
		}
	}
	return strategy, nil
}
