package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuestions() []Question {
	return []Question{
		{ID: 1, Prompt: "horizon", Options: []Option{
			{Value: "1", Label: "short", Score: 1},
			{Value: "2", Label: "long", Score: 4},
		}},
		{ID: 2, Prompt: "reaction", Options: []Option{
			{Value: "1", Label: "sell", Score: 1},
			{Value: "2", Label: "buy", Score: 4},
		}},
	}
}

func TestAnswerSet_Validate(t *testing.T) {
	questions := testQuestions()

	assert.NoError(t, AnswerSet{1: "1", 2: "2"}.Validate(questions))
	assert.NoError(t, AnswerSet{1: "1"}.Validate(questions), "validation does not require completeness")
	assert.ErrorContains(t, AnswerSet{9: "1"}.Validate(questions), "unknown question")
	assert.ErrorContains(t, AnswerSet{1: "9"}.Validate(questions), "no option")
}

func TestAnswerSet_Complete(t *testing.T) {
	questions := testQuestions()

	assert.True(t, AnswerSet{1: "1", 2: "2"}.Complete(questions))
	assert.False(t, AnswerSet{1: "1"}.Complete(questions))
	assert.False(t, AnswerSet{}.Complete(questions))
}

func TestRiskProfile_Contains(t *testing.T) {
	p := RiskProfile{MinScore: 13, MaxScore: 18}

	assert.False(t, p.Contains(12))
	assert.True(t, p.Contains(13))
	assert.True(t, p.Contains(18))
	assert.False(t, p.Contains(19))
}

func TestAllocation_Validate(t *testing.T) {
	assert.NoError(t, Allocation{Stocks: 60, Bonds: 30, Crypto: 5, Cash: 5}.Validate())
	assert.ErrorContains(t, Allocation{Stocks: 60, Bonds: 30, Crypto: 5, Cash: 6}.Validate(), "sum to")
	assert.ErrorContains(t, Allocation{Stocks: 110, Bonds: -10, Crypto: 0, Cash: 0}.Validate(), "negative")
}

func TestAllocation_String(t *testing.T) {
	a := Allocation{Stocks: 80, Bonds: 10, Crypto: 8, Cash: 2}
	assert.Equal(t, "80% stocks, 10% bonds, 8% crypto, 2% cash", a.String())
}

func TestPortfolioSnapshot_DecodesAnalyticsPayload(t *testing.T) {
	payload := `{
		"total_value": 125750.32,
		"assets": [{"symbol": "VTI", "name": "Total Market", "asset_type": "stock", "region": "US", "allocation": 40, "value": 50300.13, "change_percent": 1.2}],
		"asset_allocation": {"stocks": 60, "bonds": 40},
		"metrics": {"portfolio_return": 12.3, "num_assets": 5}
	}`

	var snap PortfolioSnapshot
	require.NoError(t, json.Unmarshal([]byte(payload), &snap))

	assert.Equal(t, 125750.32, snap.TotalValue)
	require.Len(t, snap.Assets, 1)
	assert.Equal(t, "VTI", snap.Assets[0].Symbol)
	require.NotNil(t, snap.Metrics.Return)
	assert.Equal(t, 12.3, *snap.Metrics.Return)
	assert.Nil(t, snap.Metrics.SharpeRatio, "absent metrics stay nil, never zero")
	assert.Equal(t, 5, snap.Metrics.NumAssets)
}
