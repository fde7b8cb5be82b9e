package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rewired-gh/electcast/internal/metrics"
	"github.com/rewired-gh/electcast/internal/models"
	"github.com/rewired-gh/electcast/internal/service"
)

// maxListed caps how many names /list prints.
const maxListed = 50

// HandleCommand runs one command and returns the MarkdownV2 reply. Errors become
// replies; the bot keeps running.
func (b *Bot) HandleCommand(ctx context.Context, command, args string) string {
	command = strings.ToLower(command)
	switch command {
	case "list":
		metrics.RecordBotCommand(command)
		return b.handleList(args)
	case "forecast":
		metrics.RecordBotCommand(command)
		return b.handleForecast(ctx, args)
	case "rank":
		metrics.RecordBotCommand(command)
		return b.handleRank(ctx, args)
	case "help", "start":
		metrics.RecordBotCommand("help")
		return helpText()
	default:
		metrics.RecordBotCommand("unknown")
		return escapeMarkdownV2(fmt.Sprintf("Unknown command /%s. Try /help.", command))
	}
}

func (b *Bot) handleList(args string) string {
	query := strings.TrimSpace(args)
	var names []string
	if query == "" {
		names = b.svc.Constituencies()
	} else {
		names = b.svc.Search(query)
	}
	return formatList(names, query, maxListed)
}

func (b *Bot) handleForecast(ctx context.Context, args string) string {
	req, err := parseForecastArgs(args, b.resolver())
	if err != nil {
		return formatError(err)
	}
	view, err := b.svc.Forecast(ctx, req)
	if err != nil {
		return formatError(err)
	}
	return formatView(view)
}

func (b *Bot) handleRank(ctx context.Context, args string) string {
	k := 0
	if s := strings.TrimSpace(args); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return formatError(fmt.Errorf("rank size %q must be a positive integer", s))
		}
		k = n
	}
	races, raceErrors, err := b.svc.Rank(ctx, k)
	if err != nil {
		return formatError(err)
	}
	return formatRanking(races, len(raceErrors))
}

// resolver maps names case-insensitively onto loaded constituencies.
func (b *Bot) resolver() func(string) (string, bool) {
	names := b.svc.Constituencies()
	index := make(map[string]string, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		if _, exists := index[key]; !exists {
			index[key] = name
		}
	}
	return func(s string) (string, bool) {
		name, ok := index[strings.ToLower(s)]
		return name, ok
	}
}

// parseForecastArgs splits "<constituency> [lead trail [simulations]]".
// Names may contain spaces and may end in digits, so every split of up to three
// trailing integers is tried against resolve; the first split naming a loaded
// constituency wins. When none does, all trailing integers that can be survey
// arguments are stripped and the remaining name is reported as missing later.
func parseForecastArgs(args string, resolve func(string) (string, bool)) (service.Request, error) {
	tokens := strings.Fields(args)
	if len(tokens) == 0 {
		return service.Request{}, errors.New("usage: /forecast <constituency> [lead trail [simulations]]")
	}

	trailing := 0
	for i := len(tokens) - 1; i >= 0 && trailing < 3; i-- {
		if _, err := strconv.Atoi(tokens[i]); err != nil {
			break
		}
		trailing++
	}

	// Candidate numbers of trailing integers, most specific first. One trailing
	// integer alone is never a survey.
	var splits []int
	for _, n := range []int{3, 2, 0} {
		if n <= trailing && n < len(tokens) {
			splits = append(splits, n)
		}
	}

	for _, n := range splits {
		name := strings.Join(tokens[:len(tokens)-n], " ")
		if canonical, ok := resolve(name); ok {
			return buildRequest(canonical, tokens[len(tokens)-n:])
		}
	}

	n := splits[0]
	return buildRequest(strings.Join(tokens[:len(tokens)-n], " "), tokens[len(tokens)-n:])
}

func buildRequest(name string, numbers []string) (service.Request, error) {
	req := service.Request{Constituency: name}
	values := make([]int, len(numbers))
	for i, s := range numbers {
		v, err := strconv.Atoi(s)
		if err != nil {
			return req, fmt.Errorf("%q is not a number", s)
		}
		values[i] = v
	}
	if len(values) >= 2 {
		req.Survey = &models.SurveyObservation{SurveyLead: values[0], SurveyTrail: values[1]}
	}
	if len(values) == 3 {
		n := values[2]
		req.Simulations = &n
	}
	return req, nil
}
