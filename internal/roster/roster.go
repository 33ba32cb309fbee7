// Package roster owns the static node catalog and derives a session roster from it.
package roster

import (
	"slices"

	"quantumbreach/internal/game"
)

// catalog is never handed out directly; callers always receive copies.
var catalog = []game.Target{
	{ID: "1", Name: "Onyx_Relay_Alpha", Address: "194.25.0.12", Location: "EU_WEST", Rank: game.RankEasy},
	{ID: "2", Name: "Cortex_Mainframe", Address: "104.18.2.1", Location: "US_EAST", Rank: game.RankMedium},
	{ID: "3", Name: "Neon_Spire_Grid", Address: "210.140.0.8", Location: "ASIA_NORTH", Rank: game.RankHard},
	{ID: "4", Name: "Aether_Vault_04", Address: "185.12.0.44", Location: "EU_CENTRAL", Rank: game.RankMedium},
	{ID: "5", Name: "Vortex_Core_Zero", Address: "5.200.0.1", Location: "ARCTIC_ZONE", Rank: game.RankPro},
	{ID: "6", Name: "Nebula_Cloud_Net", Address: "54.239.0.1", Location: "LATAM_SOUTH", Rank: game.RankHard},
	{ID: "7", Name: "Coral_Link_Hub", Address: "1.1.1.1", Location: "OCEANIA_EAST", Rank: game.RankMedium},
	{ID: "8", Name: "Savanna_Relay_01", Address: "196.25.1.1", Location: "AFRICA_SOUTH", Rank: game.RankEasy},
	{ID: "9", Name: "Titan_Heavy_Storage", Address: "45.12.33.1", Location: "US_WEST", Rank: game.RankPro},
	{ID: "10", Name: "Ghost_Protocol_7", Address: "99.99.99.9", Location: "HIDDEN", Rank: game.RankPro},
}

// Catalog returns a copy of every node the game knows about, in catalog order.
func Catalog() []game.Target {
	return slices.Clone(catalog)
}

// Generate builds the roster for a session difficulty. Catalog order is kept and
// every node starts ONLINE and unsuppressed. The result is deterministic.
func Generate(d game.Difficulty) []game.Target {
	return generateFrom(catalog, d)
}

func generateFrom(source []game.Target, d game.Difficulty) []game.Target {
	ranks := d.RosterRanks()
	out := make([]game.Target, 0, len(source))
	for _, t := range source {
		if !slices.Contains(ranks, t.Rank) {
			continue
		}
		t.Status = game.StatusOnline
		t.Suppressed = false
		out = append(out, t)
	}
	return out
}
