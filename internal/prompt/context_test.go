package prompt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalpha/advisor-cli/internal/model"
)

func ptr(v float64) *float64 { return &v }

func sampleSnapshot() *model.PortfolioSnapshot {
	return &model.PortfolioSnapshot{
		TotalValue:  125750.32,
		RiskProfile: "Moderate",
		AssetAllocation: map[string]float64{
			"stocks": 60, "bonds": 30, "crypto": 5, "cash": 5,
		},
		GeographicAllocation: map[string]float64{
			"US": 70, "International": 30,
		},
		Metrics: model.PortfolioMetrics{
			Return:      ptr(12.3456),
			Volatility:  ptr(8.91),
			SharpeRatio: ptr(1.387),
			NumAssets:   9,
		},
	}
}

func history(n int) []model.ChatMessage {
	msgs := make([]model.ChatMessage, n)
	for i := range msgs {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs[i] = model.ChatMessage{Role: role, Content: fmt.Sprintf("turn %d", i)}
	}
	return msgs
}

func TestBuildContext_RendersSnapshot(t *testing.T) {
	ctx, err := BuildContext(sampleSnapshot(), nil, "Should I rebalance?", 10)
	require.NoError(t, err)

	assert.Contains(t, ctx.SystemContext, "Total Value: $125,750")
	assert.Contains(t, ctx.SystemContext, "Portfolio Return: 12.35%")
	assert.Contains(t, ctx.SystemContext, "Sharpe Ratio: 1.39")
	assert.Contains(t, ctx.SystemContext, "Volatility: 8.9%")
	assert.Contains(t, ctx.SystemContext, "Risk Profile: Moderate")
	// Sorted keys keep the rendered prompt stable across runs.
	assert.Contains(t, ctx.SystemContext, "bonds 30%, cash 5%, crypto 5%, stocks 60%")
	assert.Contains(t, ctx.SystemContext, "International 30%, US 70%")

	require.Len(t, ctx.Messages, 1)
	assert.Equal(t, model.RoleUser, ctx.Messages[0].Role)
	assert.Equal(t, "Should I rebalance?", ctx.Messages[0].Content)
}

func TestBuildContext_NilSnapshot(t *testing.T) {
	ctx, err := BuildContext(nil, nil, "hello", 10)
	require.NoError(t, err)

	assert.Contains(t, ctx.SystemContext, "Portfolio data is currently unavailable")
	assert.NotContains(t, ctx.SystemContext, "Total Value")
}

func TestBuildContext_MissingMetrics(t *testing.T) {
	snap := sampleSnapshot()
	snap.Metrics.Return = nil
	snap.Metrics.SharpeRatio = nil

	ctx, err := BuildContext(snap, nil, "hello", 10)
	require.NoError(t, err)

	assert.Contains(t, ctx.SystemContext, "Portfolio Return: N/A%")
	assert.Contains(t, ctx.SystemContext, "Sharpe Ratio: N/A")
	assert.Contains(t, ctx.SystemContext, "Volatility: 8.9%")
}

func TestBuildContext_HistoryBound(t *testing.T) {
	tests := []struct {
		name       string
		history    int
		maxHistory int
		wantKept   int
	}{
		{"under the bound", 4, 10, 4},
		{"exactly at the bound", 10, 10, 10},
		{"over the bound", 25, 10, 10},
		{"zero bound drops everything", 25, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := BuildContext(nil, history(tt.history), "latest", tt.maxHistory)
			require.NoError(t, err)
			require.Len(t, ctx.Messages, tt.wantKept+1)

			// Most recent turns survive, original order preserved.
			for i, m := range ctx.Messages[:tt.wantKept] {
				want := fmt.Sprintf("turn %d", tt.history-tt.wantKept+i)
				assert.Equal(t, want, m.Content)
			}
			last := ctx.Messages[len(ctx.Messages)-1]
			assert.Equal(t, model.RoleUser, last.Role)
			assert.Equal(t, "latest", last.Content)
		})
	}
}

func TestBuildContext_DoesNotMutateHistory(t *testing.T) {
	h := history(25)
	_, err := BuildContext(nil, h, "latest", 10)
	require.NoError(t, err)

	assert.Len(t, h, 25)
	assert.Equal(t, "turn 0", h[0].Content)
}

func TestBuildContext_EmptyMessage(t *testing.T) {
	_, err := BuildContext(nil, nil, "   ", 10)
	assert.ErrorContains(t, err, "empty message")
}

func TestBuildContext_NegativeBound(t *testing.T) {
	_, err := BuildContext(nil, nil, "hello", -1)
	assert.ErrorContains(t, err, "negative history bound")
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{125750.32, "$125,750"},
		{1000000, "$1,000,000"},
		{999.5, "$1,000"},
		{0, "$0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Currency(tt.value))
	}
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "12.35", Decimal(ptr(12.3456), 2))
	assert.Equal(t, "8.9", Decimal(ptr(8.91), 1))
	assert.Equal(t, Placeholder, Decimal(nil, 2))
}
