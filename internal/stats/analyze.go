package stats

import "fmt"

// Summary aggregates the analyzed window of a player's matches.
type Summary struct {
	Season  int
	Wins    int
	Losses  int
	Winrate float64 // percent, 0 when no decided matches

	// RecentOpponents holds formatted lines like
	// "- Rival#456 (NE) ✅", newest first.
	RecentOpponents []string
}

var raceCodes = map[int]string{
	1: "HU",
	2: "OR",
	3: "UD",
	4: "NE",
}

// Analyze computes win/loss totals and recent-opponent lines over the first
// n matches. Matches where the player's team cannot be identified are skipped.
func Analyze(matches []Match, battleTag string, n int) Summary {
	if n <= 0 || n > len(matches) {
		n = len(matches)
	}

	var s Summary
	for _, m := range matches[:n] {
		var playerTeam, opponentTeam *Team
		for i := range m.Teams {
			t := &m.Teams[i]
			onTeam := false
			for _, p := range t.Players {
				if p.BattleTag == battleTag {
					onTeam = true
					break
				}
			}
			if onTeam {
				playerTeam = t
			} else if opponentTeam == nil {
				opponentTeam = t
			}
		}
		if playerTeam == nil {
			continue
		}

		if playerTeam.Won {
			s.Wins++
		} else {
			s.Losses++
		}

		if opponentTeam != nil && len(opponentTeam.Players) > 0 {
			op := opponentTeam.Players[0]
			race, ok := raceCodes[op.Race]
			if !ok {
				race = "UNK"
			}
			icon := "✅"
			if !playerTeam.Won {
				icon = "❌"
			}
			s.RecentOpponents = append(s.RecentOpponents,
				fmt.Sprintf("- %s (%s) %s", op.BattleTag, race, icon))
		}
	}

	if total := s.Wins + s.Losses; total > 0 {
		s.Winrate = float64(s.Wins) / float64(total) * 100
	}
	return s
}
