package discount

// Stage names the point at which an evaluation terminated.
type Stage string

const (
	// StageNoConfiguration means the tiered engine had no configuration to work with.
	StageNoConfiguration Stage = "no_configuration"
	// StageBelowThreshold means the cart value did not clear the gate or any tier.
	StageBelowThreshold Stage = "below_threshold"
	// StageNoTarget means the gate passed but no line qualified.
	StageNoTarget Stage = "no_target"
	// StageApplied means a discount was emitted.
	StageApplied Stage = "applied"
)

// Evaluation is a verdict plus the intermediate values that produced it.
type Evaluation struct {
	Verdict  Verdict
	Stage    Stage
	Subtotal float64
	Tier     *Tier
}

// FixedEngine evaluates a single compiled rule: total cart value gate, then every line in
// the target collection.
type FixedEngine struct {
	rule FixedRule
}

// NewFixedEngine validates the rule and returns an engine bound to it.
func NewFixedEngine(rule FixedRule) (*FixedEngine, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &FixedEngine{rule: rule}, nil
}

// Rule returns the rule the engine evaluates.
func (e *FixedEngine) Rule() FixedRule {
	return e.rule
}

// Run evaluates the cart.
func (e *FixedEngine) Run(cart Cart) Evaluation {
	subtotal := Aggregate(cart.Lines, IncludeAll)
	if !MeetsThreshold(subtotal, e.rule.Threshold) {
		return Evaluation{Verdict: NoDiscount(), Stage: StageBelowThreshold, Subtotal: subtotal}
	}
	targets := CartLineTargets(cart.Lines, e.rule.TargetCollection)
	if len(targets) == 0 {
		return Evaluation{Verdict: NoDiscount(), Stage: StageNoTarget, Subtotal: subtotal}
	}
	return Evaluation{
		Verdict: withDiscount(Discount{
			Message:    e.rule.Message,
			Targets:    targets,
			Percentage: e.rule.Percentage,
		}),
		Stage:    StageApplied,
		Subtotal: subtotal,
	}
}

// Evaluate returns only the verdict of Run.
func (e *FixedEngine) Evaluate(cart Cart) Verdict {
	return e.Run(cart).Verdict
}

// RunTiered evaluates the cart against a parsed tiered configuration. The only error it
// returns is a malformed product discount schedule.
func RunTiered(cart Cart, cfg TieredConfig) (Evaluation, error) {
	subtotal := Aggregate(cart.Lines, ExcludingCollections(cfg.excluded()))
	tier, ok := SelectTier(subtotal, cfg.Mapping)
	if !ok {
		return Evaluation{Verdict: NoDiscount(), Stage: StageBelowThreshold, Subtotal: subtotal}, nil
	}
	won := tier
	best, found, err := BestVariantDiscount(cart.Lines, tier)
	if err != nil {
		return Evaluation{}, err
	}
	if !found {
		return Evaluation{Verdict: NoDiscount(), Stage: StageNoTarget, Subtotal: subtotal, Tier: &won}, nil
	}
	return Evaluation{Verdict: withDiscount(best), Stage: StageApplied, Subtotal: subtotal, Tier: &won}, nil
}

// RunTieredRaw parses the configuration payload and evaluates the cart. A nil payload
// yields no discount; a malformed one aborts with ErrInvalidConfiguration.
func RunTieredRaw(cart Cart, raw *string) (Evaluation, error) {
	if raw == nil {
		return Evaluation{Verdict: NoDiscount(), Stage: StageNoConfiguration}, nil
	}
	cfg, err := ParseTieredConfig(*raw)
	if err != nil {
		return Evaluation{}, err
	}
	return RunTiered(cart, cfg)
}

// EvaluateTiered returns only the verdict of RunTiered.
func EvaluateTiered(cart Cart, cfg TieredConfig) (Verdict, error) {
	ev, err := RunTiered(cart, cfg)
	if err != nil {
		return Verdict{}, err
	}
	return ev.Verdict, nil
}
