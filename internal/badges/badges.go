package badges

import "github.com/mathquest/backend/internal/models"

// Def defines a single badge threshold.
type Def struct {
	ID              string
	Name            string
	RequiredCorrect int
	Icon            string
}

// Defs lists all badges in ascending threshold order.
var Defs = []Def{
	{ID: "bronze_50", Name: "Bronze Brain", RequiredCorrect: 50, Icon: "🥉"},
	{ID: "silver_100", Name: "Silver Star", RequiredCorrect: 100, Icon: "🥈"},
	{ID: "gold_200", Name: "Gold Genius", RequiredCorrect: 200, Icon: "🥇"},
	{ID: "diamond_300", Name: "Diamond Master", RequiredCorrect: 300, Icon: "💎"},
}

// Derive returns the full badge set for a cumulative correct count, in
// threshold order, with Unlocked set for every badge whose threshold is
// met. Monotonic: raising totalCorrect never locks a previously unlocked
// badge.
func Derive(totalCorrect int) []models.Badge {
	out := make([]models.Badge, len(Defs))
	for i, d := range Defs {
		out[i] = models.Badge{
			ID:              d.ID,
			Name:            d.Name,
			RequiredCorrect: d.RequiredCorrect,
			Icon:            d.Icon,
			Unlocked:        totalCorrect >= d.RequiredCorrect,
		}
	}
	return out
}

// CountUnlocked returns how many badges are unlocked at totalCorrect.
func CountUnlocked(totalCorrect int) int {
	n := 0
	for _, d := range Defs {
		if totalCorrect >= d.RequiredCorrect {
			n++
		}
	}
	return n
}
