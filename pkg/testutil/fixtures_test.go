package testutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna-sports/arbiter/internal/detector"
	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/testutil"
)

func detectCfg() detector.Config {
	return detector.Config{Markets: []string{"h2h", "spreads"}, MinProfitPct: 0}
}

func TestClassic2WayArbEvent_MatchesScenario1(t *testing.T) {
	opps := detector.Detect([]models.Event{testutil.Classic2WayArbEvent()}, detectCfg(), time.Now())
	require.Len(t, opps, 1)
	assert.InDelta(t, 14.13, opps[0].ProfitPct, 0.2)
}

func TestNoArbEvent_MatchesScenario2(t *testing.T) {
	opps := detector.Detect([]models.Event{testutil.NoArbEvent()}, detectCfg(), time.Now())
	assert.Empty(t, opps)
}

func TestSpreadsAsymmetricLinesEvent_MatchesScenario3(t *testing.T) {
	opps := detector.Detect([]models.Event{testutil.SpreadsAsymmetricLinesEvent()}, detectCfg(), time.Now())
	assert.Empty(t, opps)
}
