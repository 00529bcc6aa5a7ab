package feed

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"w3feed/internal/stats"
	"w3feed/pkg/tghtml"
)

const (
	maxOpponentLines = 3
	sectionRule      = "——————————————"
)

// BuildHeader opens the combined Telegram report.
func BuildHeader(today string) string {
	var b strings.Builder
	b.WriteString("🏆 ")
	b.WriteString(tghtml.B("W3Champions player stats").String())
	b.WriteString("\n📅 Today: ")
	b.WriteString(today)
	b.WriteString("\n\n")
	return b.String()
}

// BuildPlayerSection renders one player's stats as Telegram HTML.
func BuildPlayerSection(battleTag string, sum stats.Summary, siteMatches []string) string {
	var b strings.Builder

	b.WriteString("📊 ")
	b.WriteString(tghtml.B(PlayerTitle(battleTag, sum.Season)).String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "✅ Wins: %d\n", sum.Wins)
	fmt.Fprintf(&b, "❌ Losses: %d\n", sum.Losses)
	fmt.Fprintf(&b, "🏆 Winrate: %.1f%%\n\n", sum.Winrate)

	b.WriteString(tghtml.B("Recent opponents:").String())
	b.WriteString("\n")
	if len(sum.RecentOpponents) > 0 {
		opp := sum.RecentOpponents
		if len(opp) > maxOpponentLines {
			opp = opp[:maxOpponentLines]
		}
		b.WriteString(tghtml.Esc(strings.Join(opp, "\n")).String())
		b.WriteString("\n\n")
	} else {
		b.WriteString("No data\n\n")
	}

	b.WriteString(tghtml.B("Recent site matches:").String())
	b.WriteString("\n")
	if len(siteMatches) > 0 {
		b.WriteString(tghtml.Esc(strings.Join(siteMatches, "\n")).String())
		b.WriteString("\n")
	} else {
		b.WriteString("No data\n")
	}

	b.WriteString("\n")
	return b.String()
}

// PlayerTitle is shared by the Telegram section header and the Discord embed title.
func PlayerTitle(battleTag string, season int) string {
	return fmt.Sprintf("Stats for %s (Season %d)", battleTag, season)
}

// ProfileURL is the canonical player page.
func ProfileURL(baseURL, battleTag string) string {
	base := strings.TrimSuffix(baseURL, "/")
	return base + "/player/" + url.PathEscape(battleTag)
}

var (
	reBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	rePara  = regexp.MustCompile(`(?i)</p\s*>`)
	reTag   = regexp.MustCompile(`<[^>]+>`)
)

// HTMLToMarkdown does a rough Telegram-HTML to Discord-markdown conversion:
// bold tags become **, breaks become newlines, everything else is stripped
// and unescaped.
func HTMLToMarkdown(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "<b>", "**")
	s = strings.ReplaceAll(s, "</b>", "**")
	s = reBreak.ReplaceAllString(s, "\n")
	s = rePara.ReplaceAllString(s, "\n\n")
	s = reTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}
