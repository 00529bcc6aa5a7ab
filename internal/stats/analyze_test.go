package stats

import (
	"strings"
	"testing"
)

func match(won bool, me string, opponent string, opponentRace int) Match {
	return Match{Teams: []Team{
		{Won: won, Players: []Player{{BattleTag: me}}},
		{Won: !won, Players: []Player{{BattleTag: opponent, Race: opponentRace}}},
	}}
}

func TestAnalyzeTotalsAndWinrate(t *testing.T) {
	t.Parallel()
	matches := []Match{
		match(true, "Foo#123", "A#1", 1),
		match(true, "Foo#123", "B#2", 2),
		match(false, "Foo#123", "C#3", 3),
		match(false, "Foo#123", "D#4", 4),
	}
	s := Analyze(matches, "Foo#123", 10)

	if s.Wins != 2 || s.Losses != 2 {
		t.Fatalf("W/L = %d/%d, want 2/2", s.Wins, s.Losses)
	}
	if s.Winrate != 50 {
		t.Fatalf("Winrate = %v, want 50", s.Winrate)
	}
	if len(s.RecentOpponents) != 4 {
		t.Fatalf("opponents = %d, want 4", len(s.RecentOpponents))
	}
	if s.RecentOpponents[0] != "- A#1 (HU) ✅" {
		t.Fatalf("opponent line = %q", s.RecentOpponents[0])
	}
	if s.RecentOpponents[2] != "- C#3 (UD) ❌" {
		t.Fatalf("opponent line = %q", s.RecentOpponents[2])
	}
}

func TestAnalyzeWindowLimit(t *testing.T) {
	t.Parallel()
	matches := []Match{
		match(true, "Foo#123", "A#1", 1),
		match(false, "Foo#123", "B#2", 2),
		match(false, "Foo#123", "C#3", 3),
	}
	s := Analyze(matches, "Foo#123", 2)
	if s.Wins+s.Losses != 2 {
		t.Fatalf("analyzed %d matches, want 2", s.Wins+s.Losses)
	}
}

func TestAnalyzeSkipsForeignMatches(t *testing.T) {
	t.Parallel()
	matches := []Match{
		match(true, "Someone#999", "A#1", 1),
		match(true, "Foo#123", "A#1", 1),
	}
	s := Analyze(matches, "Foo#123", 10)
	if s.Wins != 1 || s.Losses != 0 {
		t.Fatalf("W/L = %d/%d, want 1/0", s.Wins, s.Losses)
	}
}

func TestAnalyzeUnknownRace(t *testing.T) {
	t.Parallel()
	s := Analyze([]Match{match(true, "Foo#123", "A#1", 8)}, "Foo#123", 10)
	if len(s.RecentOpponents) != 1 || !strings.Contains(s.RecentOpponents[0], "(UNK)") {
		t.Fatalf("opponents = %v, want UNK race code", s.RecentOpponents)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	t.Parallel()
	s := Analyze(nil, "Foo#123", 10)
	if s.Wins != 0 || s.Losses != 0 || s.Winrate != 0 || s.RecentOpponents != nil {
		t.Fatalf("unexpected summary for no matches: %+v", s)
	}
}
