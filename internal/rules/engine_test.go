package rules

import (
	"context"
	"testing"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := domain.OverlayRule{
		ID:         "big-wire",
		Sector:     domain.SectorBanking,
		Expression: "amount > 100000.0",
		Weight:     15,
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := domain.OverlayRule{
		ID:         "invalid-rule",
		Expression: "this is not valid CEL !!!",
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
}

func TestLoadRulesSkipsDisabled(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	err := engine.LoadRules([]domain.OverlayRule{
		{ID: "on", Expression: "true", Weight: 5, Enabled: true},
		{ID: "off", Expression: "true", Weight: 5, Enabled: false},
	})
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestApplyBooleanRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(domain.OverlayRule{
		ID:         "big-wire",
		Sector:     domain.SectorBanking,
		Expression: "amount > 100000.0",
		Weight:     15,
		Enabled:    true,
	})

	ctx := context.Background()

	score, adjs := engine.Apply(ctx, domain.SectorBanking, domain.Record{"amount": 250000.0}, 40)
	if score != 55 {
		t.Errorf("expected 55, got %.2f", score)
	}
	if len(adjs) != 1 || adjs[0].Delta != 15 {
		t.Errorf("unexpected adjustments: %+v", adjs)
	}

	score, _ = engine.Apply(ctx, domain.SectorBanking, domain.Record{"amount": 500.0}, 40)
	if score != 40 {
		t.Errorf("non-matching rule should leave score unchanged, got %.2f", score)
	}
}

func TestApplyNumericDeltaClampsToWeight(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(domain.OverlayRule{
		ID:         "runaway",
		Expression: "amount / 10.0",
		Weight:     10,
		Enabled:    true,
	})

	score, adjs := engine.Apply(context.Background(), domain.SectorEcommerce, domain.Record{"amount": 900.0}, 50)
	if adjs[0].Delta != 10 {
		t.Errorf("delta should clamp to weight, got %.2f", adjs[0].Delta)
	}
	if score != 60 {
		t.Errorf("expected 60, got %.2f", score)
	}
}

func TestApplyNegativeDelta(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(domain.OverlayRule{
		ID:         "trusted-channel",
		Expression: `record["channel"] == "branch" ? -20.0 : 0.0`,
		Weight:     10,
		Enabled:    true,
	})

	score, adjs := engine.Apply(context.Background(), domain.SectorBanking, domain.Record{"channel": "branch"}, 30)
	if adjs[0].Delta != -10 {
		t.Errorf("negative delta should clamp to -weight, got %.2f", adjs[0].Delta)
	}
	if score != 20 {
		t.Errorf("expected 20, got %.2f", score)
	}
}

func TestApplyScopedBySector(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRules([]domain.OverlayRule{
		{ID: "banking-only", Sector: domain.SectorBanking, Expression: "true", Weight: 10, Enabled: true},
		{ID: "everywhere", Expression: "true", Weight: 5, Enabled: true},
	})

	score, adjs := engine.Apply(context.Background(), domain.SectorMedical, domain.Record{}, 50)
	if len(adjs) != 1 {
		t.Fatalf("expected only the unscoped rule, got %d adjustments", len(adjs))
	}
	if score != 55 {
		t.Errorf("expected 55, got %.2f", score)
	}
}

func TestApplyClampsTotal(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRules([]domain.OverlayRule{
		{ID: "a", Expression: "true", Weight: 30, Enabled: true},
		{ID: "b", Expression: "true", Weight: 30, Enabled: true},
	})

	score, _ := engine.Apply(context.Background(), domain.SectorBanking, domain.Record{}, 80)
	if score != 100 {
		t.Errorf("overlaid score must clamp to 100, got %.2f", score)
	}
}

func TestApplyEvaluationErrorAbsorbed(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	// record lookup on a missing key errors at eval time; the delta absorbs to 0
	engine.LoadRule(domain.OverlayRule{
		ID:         "broken",
		Expression: `record["missing"].size() > 2`,
		Weight:     10,
		Enabled:    true,
	})

	score, adjs := engine.Apply(context.Background(), domain.SectorBanking, domain.Record{}, 45)
	if score != 45 {
		t.Errorf("errored rule must not move the score, got %.2f", score)
	}
	if adjs[0].Reason == "" {
		t.Error("expected evaluation error reason")
	}
}

func TestReloadRules(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRules([]domain.OverlayRule{
		{ID: "a", Expression: "true", Weight: 5, Enabled: true},
		{ID: "b", Expression: "true", Weight: 5, Enabled: true},
	})

	err := engine.ReloadRules([]domain.OverlayRule{
		{ID: "c", Expression: "false", Weight: 5, Enabled: true},
	})
	if err != nil {
		t.Fatalf("ReloadRules: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule after reload, got %d", engine.RulesCount())
	}
	loaded := engine.GetLoadedRules()
	if len(loaded) != 1 || loaded[0].ID != "c" {
		t.Errorf("unexpected loaded rules: %+v", loaded)
	}
}

func TestValidateRuleDoesNotLoad(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	if err := engine.ValidateRule(domain.OverlayRule{ID: "v", Expression: "amount > 5.0"}); err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if engine.RulesCount() != 0 {
		t.Errorf("validate must not load the rule, count = %d", engine.RulesCount())
	}
}
