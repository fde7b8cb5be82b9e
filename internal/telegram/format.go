package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rewired-gh/electcast/internal/models"
	"github.com/rewired-gh/electcast/internal/presenter"
	"github.com/rewired-gh/electcast/internal/ranking"
	"github.com/rewired-gh/electcast/internal/service"
)

func helpText() string {
	lines := []string{
		"*electcast*",
		"",
		"/list \\[query\\] \\- list constituencies",
		"/forecast <constituency> \\[lead trail \\[simulations\\]\\] \\- win probability",
		"/rank \\[k\\] \\- closest races",
		"/help \\- this message",
	}
	return strings.Join(lines, "\n")
}

func formatList(names []string, query string, limit int) string {
	if len(names) == 0 {
		if query != "" {
			return escapeMarkdownV2(fmt.Sprintf("No constituency matches %q.", query))
		}
		return escapeMarkdownV2("No dataset loaded.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", escapeMarkdownV2(fmt.Sprintf("%d constituencies", len(names))))
	for i, name := range names {
		if i == limit {
			sb.WriteString(escapeMarkdownV2(fmt.Sprintf("... and %d more", len(names)-limit)))
			sb.WriteString("\n")
			break
		}
		fmt.Fprintf(&sb, "• %s\n", escapeMarkdownV2(name))
	}
	return sb.String()
}

// formatView renders a forecast view as a chat message
func formatView(v *presenter.View) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🗳 *%s*\n\n", escapeMarkdownV2(v.Summary.Constituency))
	fmt.Fprintf(&sb, "Last result: %s over %s\n", escapeMarkdownV2(v.Summary.Leading), escapeMarkdownV2(v.Summary.Trailing))
	fmt.Fprintf(&sb, "Margin: %s\n", escapeMarkdownV2(v.Summary.Margin))
	for _, w := range v.Summary.Warnings {
		fmt.Fprintf(&sb, "⚠️ %s\n", escapeMarkdownV2(w.Error()))
	}

	fmt.Fprintf(&sb, "\nSurvey: %s\n", escapeMarkdownV2(fmt.Sprintf("%d / %d", v.Survey.SurveyLead, v.Survey.SurveyTrail)))
	if v.Result != nil {
		fmt.Fprintf(&sb, "📈 %s: *%s*\n", escapeMarkdownV2(v.Share.LeadingLabel), escapeMarkdownV2(formatPct(v.Result.ProbLead)))
		fmt.Fprintf(&sb, "📉 %s: *%s*\n", escapeMarkdownV2(v.Share.TrailingLabel), escapeMarkdownV2(formatPct(v.Result.ProbTrail)))
		fmt.Fprintf(&sb, "Exact: %s, %s simulations\n",
			escapeMarkdownV2(formatPct(v.AnalyticProbLead)), escapeMarkdownV2(fmt.Sprintf("%d", v.Result.Simulations)))
	}
	fmt.Fprintf(&sb, "Vote share %s: %s\n",
		escapeMarkdownV2(fmt.Sprintf("%.0f%% interval", presenter.CredibleLevel*100)),
		escapeMarkdownV2(fmt.Sprintf("%s to %s", formatPct(v.CredibleLow), formatPct(v.CredibleHigh))))
	return sb.String()
}

func formatRanking(races []ranking.Race, failed int) string {
	if len(races) == 0 {
		return escapeMarkdownV2("No races to rank.")
	}
	var sb strings.Builder
	sb.WriteString("⚖️ *Closest races*\n\n")
	writeRaces(&sb, races)
	if failed > 0 {
		fmt.Fprintf(&sb, "\n%s\n", escapeMarkdownV2(fmt.Sprintf("%d constituencies could not be forecast.", failed)))
	}
	return sb.String()
}

func formatDigest(races []ranking.Race, failed int) string {
	if len(races) == 0 {
		return escapeMarkdownV2("Digest: no races to rank.")
	}
	var sb strings.Builder
	sb.WriteString("🚨 *Race digest*\n\n")
	writeRaces(&sb, races)
	if failed > 0 {
		fmt.Fprintf(&sb, "\n%s\n", escapeMarkdownV2(fmt.Sprintf("%d constituencies could not be forecast.", failed)))
	}
	return sb.String()
}

func writeRaces(sb *strings.Builder, races []ranking.Race) {
	for i, r := range races {
		fmt.Fprintf(sb, "%d\\. *%s*\n", i+1, escapeMarkdownV2(r.Constituency))
		fmt.Fprintf(sb, "   %s vs %s\n", escapeMarkdownV2(r.Leading), escapeMarkdownV2(r.Trailing))
		fmt.Fprintf(sb, "   P\\(lead\\) %s, shift %s\n",
			escapeMarkdownV2(formatPct(r.ProbLead)), escapeMarkdownV2(fmt.Sprintf("%.4f", r.SurveyShift)))
	}
}

// formatError turns an error into a reply, naming the offending value where known.
func formatError(err error) string {
	var (
		missing  *models.MissingConstituencyError
		rangeErr *service.OutOfRangeError
	)
	switch {
	case errors.As(err, &missing):
		return escapeMarkdownV2(fmt.Sprintf("❌ No constituency named %q. Try /list %s.", missing.Constituency, missing.Constituency))
	case errors.As(err, &rangeErr):
		return escapeMarkdownV2("❌ " + rangeErr.Error())
	default:
		return escapeMarkdownV2("❌ " + err.Error())
	}
}

func formatPct(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . ! and the escape character itself
	var sb strings.Builder
	sb.Grow(len(text))
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			sb.WriteByte('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
