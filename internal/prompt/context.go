// Package prompt assembles the structured context handed to the text
// generation backend: a system prompt rendered from live portfolio state and
// a recency-bounded message list. It performs no I/O.
package prompt

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quantalpha/advisor-cli/internal/model"
)

// Placeholder is rendered for any metric the analytics side did not supply.
const Placeholder = "N/A"

// Context is the fully assembled payload for one text-generation call.
type Context struct {
	SystemContext string
	Messages      []model.ChatMessage
}

// Locale is pinned so currency grouping never depends on the process
// environment; identical inputs must render identical prompts everywhere.
var printer = message.NewPrinter(language.English)

// BuildContext renders the system context from the snapshot and returns it
// with the last maxHistory turns of history, in original order, followed by
// the new user message. A nil snapshot yields a context that states the
// portfolio data is unavailable instead of fabricating figures.
func BuildContext(snapshot *model.PortfolioSnapshot, history []model.ChatMessage, newMessage string, maxHistory int) (Context, error) {
	if strings.TrimSpace(newMessage) == "" {
		return Context{}, eris.New("prompt: empty message")
	}
	if maxHistory < 0 {
		return Context{}, eris.Errorf("prompt: negative history bound %d", maxHistory)
	}

	kept := history
	if len(kept) > maxHistory {
		kept = kept[len(kept)-maxHistory:]
	}

	messages := make([]model.ChatMessage, 0, len(kept)+1)
	messages = append(messages, kept...)
	messages = append(messages, model.ChatMessage{Role: model.RoleUser, Content: newMessage})

	return Context{
		SystemContext: systemContext(snapshot),
		Messages:      messages,
	}, nil
}

func systemContext(snapshot *model.PortfolioSnapshot) string {
	var sb strings.Builder
	sb.WriteString("You are an expert AI Portfolio Manager for QuantAlpha, a sophisticated investment platform.\n\n")

	if snapshot == nil {
		sb.WriteString("Portfolio data is currently unavailable. Do not invent portfolio figures; ")
		sb.WriteString("answer general investment questions and tell the user that live portfolio ")
		sb.WriteString("details cannot be referenced right now.\n")
	} else {
		sb.WriteString("Current Portfolio Context:\n")
		fmt.Fprintf(&sb, "- Total Value: %s\n", Currency(snapshot.TotalValue))
		fmt.Fprintf(&sb, "- Asset Allocation: %s\n", allocationLine(snapshot.AssetAllocation))
		fmt.Fprintf(&sb, "- Geographic Allocation: %s\n", allocationLine(snapshot.GeographicAllocation))
		if snapshot.RiskProfile != "" {
			fmt.Fprintf(&sb, "- Risk Profile: %s\n", snapshot.RiskProfile)
		}
		fmt.Fprintf(&sb, "- Portfolio Return: %s%%\n", Decimal(snapshot.Metrics.Return, 2))
		fmt.Fprintf(&sb, "- Sharpe Ratio: %s\n", Decimal(snapshot.Metrics.SharpeRatio, 2))
		fmt.Fprintf(&sb, "- Volatility: %s%%\n", Decimal(snapshot.Metrics.Volatility, 1))
	}

	sb.WriteString(`
Your role:
- Provide intelligent portfolio allocation advice
- Analyze market conditions and their impact on investments
- Explain investment decisions with clear reasoning
- Consider risk management and diversification

Guidelines:
- Be concise but informative
- Provide specific actionable advice
- Reference the portfolio context when relevant
- Maintain a professional, confident tone`)

	return sb.String()
}

// allocationLine renders a category→percentage map with sorted keys so the
// prompt is identical across runs regardless of map iteration order.
func allocationLine(alloc map[string]float64) string {
	if len(alloc) == 0 {
		return Placeholder
	}
	keys := make([]string, 0, len(alloc))
	for k := range alloc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %g%%", k, alloc[k])
	}
	return strings.Join(parts, ", ")
}

// Currency formats a value as whole dollars with grouping separators,
// e.g. 125750.32 → "$125,750".
func Currency(value float64) string {
	return printer.Sprintf("$%d", int64(math.Round(value)))
}

// Decimal formats an optional metric with a fixed number of decimals, or the
// placeholder when the metric is absent.
func Decimal(value *float64, places int) string {
	if value == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.*f", places, *value)
}
