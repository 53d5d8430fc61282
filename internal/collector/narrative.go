package collector

import (
	"fmt"
	"strings"

	"github.com/tipio/tipio/internal/adapters/providers"
	"github.com/tipio/tipio/internal/domain/model"
)

// renderNarrative turns the merged payload into the text block fed to the
// prediction backend. Sections appear only when their source contributed.
func renderNarrative(ev model.Event, p providers.Payload, sources []string, quality int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fixture: %s (%s)\n", ev.Title(), ev.Sport)
	if !ev.StartTime.IsZero() {
		fmt.Fprintf(&b, "Kickoff: %s\n", ev.StartTime.UTC().Format("2006-01-02 15:04 MST"))
	}

	if f := p.Fixture; f != nil {
		b.WriteString("\n== Official fixture ==\n")
		if f.Competition != "" {
			fmt.Fprintf(&b, "Competition: %s", f.Competition)
			if f.Round != "" {
				fmt.Fprintf(&b, ", %s", f.Round)
			}
			b.WriteString("\n")
		}
		if f.Venue != "" {
			fmt.Fprintf(&b, "Venue: %s\n", f.Venue)
		}
		if f.Referee != "" {
			fmt.Fprintf(&b, "Referee: %s\n", f.Referee)
		}
	}

	if s := p.Statistics; s != nil {
		b.WriteString("\n== Team statistics ==\n")
		writeTeamStats(&b, "Home", s.Home)
		writeTeamStats(&b, "Away", s.Away)
	}

	if l := p.Lineups; l != nil {
		b.WriteString("\n== Lineups ==\n")
		if l.HomeFormation != "" || l.AwayFormation != "" {
			fmt.Fprintf(&b, "Formations: %s vs %s\n", orUnknown(l.HomeFormation), orUnknown(l.AwayFormation))
		}
		if len(l.HomeMissing) > 0 {
			fmt.Fprintf(&b, "Home missing: %s\n", strings.Join(l.HomeMissing, ", "))
		}
		if len(l.AwayMissing) > 0 {
			fmt.Fprintf(&b, "Away missing: %s\n", strings.Join(l.AwayMissing, ", "))
		}
	}

	if h := p.HeadToHead; h != nil {
		b.WriteString("\n== Head to head ==\n")
		fmt.Fprintf(&b, "Recent record: %d home wins, %d draws, %d away wins\n",
			h.HomeWins, h.Draws, h.AwayWins)
		for i, m := range h.Matches {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "%s: %s %d-%d %s\n",
				m.Date.Format("2006-01-02"), m.HomeTeam, m.HomeGoals, m.AwayGoals, m.AwayTeam)
		}
	}

	if o := p.Odds; o != nil {
		b.WriteString("\n== Market odds ==\n")
		if w := o.MatchWinner; w != nil {
			fmt.Fprintf(&b, "Match winner: home %.2f, draw %.2f, away %.2f\n", w.Home, w.Draw, w.Away)
		}
		if t := o.Totals; t != nil {
			fmt.Fprintf(&b, "Totals %.1f: over %.2f, under %.2f\n", t.Line, t.Over, t.Under)
		}
		if len(o.Bookmakers) > 0 {
			fmt.Fprintf(&b, "Bookmakers: %s\n", strings.Join(o.Bookmakers, ", "))
		}
	}

	b.WriteString("\n")
	if len(sources) == 0 {
		b.WriteString("No external data sources were available for this fixture.\n")
	} else {
		fmt.Fprintf(&b, "Data sources: %s (quality %d/100)\n", strings.Join(sources, ", "), quality)
	}
	return b.String()
}

func writeTeamStats(b *strings.Builder, side string, s providers.TeamStats) {
	fmt.Fprintf(b, "%s: %s", side, s.Name)
	if s.Position > 0 {
		fmt.Fprintf(b, " (position %d)", s.Position)
	}
	if s.Form != "" {
		fmt.Fprintf(b, ", form %s", s.Form)
	}
	if s.GoalsForAvg > 0 || s.GoalsAgainstAvg > 0 {
		fmt.Fprintf(b, ", goals %.2f for / %.2f against per game", s.GoalsForAvg, s.GoalsAgainstAvg)
	}
	if s.WinRate > 0 {
		fmt.Fprintf(b, ", win rate %.0f%%", s.WinRate*100)
	}
	b.WriteString("\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
