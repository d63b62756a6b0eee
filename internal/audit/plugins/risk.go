package plugins

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
)

// TradeRisk checks that each live order risks either the full or the half
// approved amount, within tolerance. Targets are tv tickers; orders are
// matched to them through the Kite symbol table.
type TradeRisk struct {
	deps Deps
}

func (p *TradeRisk) ID() string    { return IDTradeRisk }
func (p *TradeRisk) Title() string { return "Trade Risk Multiple" }

// Ladder returns the approved risk rungs, largest first.
func (p *TradeRisk) Ladder() []decimal.Decimal {
	limit := p.deps.Settings.RiskLimit
	return []decimal.Decimal{limit, limit.Div(decimal.NewFromInt(2))}
}

func (p *TradeRisk) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	targets = clean(targets)
	tg := newTargeting(targets)
	if p.deps.Orders == nil || !p.deps.Settings.RiskLimit.IsPositive() {
		return tg.passes(IDTradeRisk, targets), nil
	}

	orders, err := p.deps.Orders.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	ladder := p.Ladder()
	var findings []audit.Finding
	err = audit.ForEachBatch(ctx, orders, p.deps.Settings.BatchSize, func(o model.Order) {
		tv := p.deps.Symbols.KiteToTv(o.Symbol)
		if tg.active() {
			if _, ok := tg[string(tv)]; !ok {
				return
			}
		}
		risk := o.Risk()
		if p.withinLadder(risk, ladder) {
			return
		}
		tg.hit(string(tv))
		findings = append(findings, audit.Finding{
			PluginID: IDTradeRisk,
			Code:     CodeRiskMismatch,
			Target:   o.ID,
			Message:  fmt.Sprintf("%s order %s risks %s, expected %s or %s", tv, o.ID, risk.StringFixed(2), ladder[0].StringFixed(2), ladder[1].StringFixed(2)),
			Severity: audit.SeverityMedium,
			Status:   audit.StatusFail,
			Data: map[string]any{
				"tv":     string(tv),
				"symbol": string(o.Symbol),
				"risk":   risk.String(),
				"ladder": []string{ladder[0].String(), ladder[1].String()},
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return append(findings, tg.passes(IDTradeRisk, targets)...), nil
}

func (p *TradeRisk) withinLadder(risk decimal.Decimal, ladder []decimal.Decimal) bool {
	for _, rung := range ladder {
		band := rung.Mul(p.deps.Settings.RiskTolerance)
		if risk.Sub(rung).Abs().LessThanOrEqual(band) {
			return true
		}
	}
	return false
}
