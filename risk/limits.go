package risk

import "fmt"

// Limits is the portfolio risk configuration. Loaded once per decision cycle
// and treated as immutable for the duration of that cycle.
type Limits struct {
	MaxOpenPositions      int     `yaml:"max_open_positions" json:"max_open_positions"`
	MaxPortfolioHeatPct   float64 `yaml:"max_portfolio_heat_pct" json:"max_portfolio_heat_pct"`
	MaxCapitalDeployedPct float64 `yaml:"max_capital_deployed_pct" json:"max_capital_deployed_pct"`
	MaxSectorPositions    int     `yaml:"max_sector_positions" json:"max_sector_positions"`
	CorrelationThreshold  float64 `yaml:"correlation_threshold" json:"correlation_threshold"`
	MaxDailyLossPct       float64 `yaml:"max_daily_loss_pct" json:"max_daily_loss_pct"`

	// Per-trade risk is scaled linearly by signal confidence between
	// MinRiskPct (at RiskConfidenceFloor) and MaxRiskPct (at 1.0).
	MinRiskPct          float64 `yaml:"min_risk_pct" json:"min_risk_pct"`
	MaxRiskPct          float64 `yaml:"max_risk_pct" json:"max_risk_pct"`
	RiskConfidenceFloor float64 `yaml:"risk_confidence_floor" json:"risk_confidence_floor"`

	MaxPositionPctOfCapital float64 `yaml:"max_position_pct_of_capital" json:"max_position_pct_of_capital"`

	MinRewardToRiskIntraday float64 `yaml:"min_rr_intraday" json:"min_rr_intraday"`
	MinRewardToRiskCarry    float64 `yaml:"min_rr_carry" json:"min_rr_carry"`
}

// DefaultLimits returns a conservative configuration for a 10 lakh book.
func DefaultLimits() Limits {
	return Limits{
		MaxOpenPositions:        5,
		MaxPortfolioHeatPct:     0.03,
		MaxCapitalDeployedPct:   0.50,
		MaxSectorPositions:      2,
		CorrelationThreshold:    0.7,
		MaxDailyLossPct:         0.02,
		MinRiskPct:              0.005,
		MaxRiskPct:              0.010,
		RiskConfidenceFloor:     0.65,
		MaxPositionPctOfCapital: 0.10,
		MinRewardToRiskIntraday: 1.5,
		MinRewardToRiskCarry:    1.2,
	}
}

func (l Limits) Validate() error {
	if l.MaxOpenPositions <= 0 {
		return fmt.Errorf("max_open_positions must be positive, got %d", l.MaxOpenPositions)
	}
	if l.MaxPortfolioHeatPct <= 0 || l.MaxPortfolioHeatPct > 1 {
		return fmt.Errorf("max_portfolio_heat_pct must be in (0, 1], got %v", l.MaxPortfolioHeatPct)
	}
	if l.MaxCapitalDeployedPct <= 0 || l.MaxCapitalDeployedPct > 1 {
		return fmt.Errorf("max_capital_deployed_pct must be in (0, 1], got %v", l.MaxCapitalDeployedPct)
	}
	if l.MaxSectorPositions <= 0 {
		return fmt.Errorf("max_sector_positions must be positive, got %d", l.MaxSectorPositions)
	}
	if l.CorrelationThreshold <= 0 || l.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation_threshold must be in (0, 1], got %v", l.CorrelationThreshold)
	}
	if l.MaxDailyLossPct <= 0 || l.MaxDailyLossPct > 1 {
		return fmt.Errorf("max_daily_loss_pct must be in (0, 1], got %v", l.MaxDailyLossPct)
	}
	if l.MinRiskPct <= 0 || l.MaxRiskPct < l.MinRiskPct {
		return fmt.Errorf("risk pct range [%v, %v] is invalid", l.MinRiskPct, l.MaxRiskPct)
	}
	if l.RiskConfidenceFloor < 0 || l.RiskConfidenceFloor >= 1 {
		return fmt.Errorf("risk_confidence_floor must be in [0, 1), got %v", l.RiskConfidenceFloor)
	}
	if l.MaxPositionPctOfCapital <= 0 || l.MaxPositionPctOfCapital > 1 {
		return fmt.Errorf("max_position_pct_of_capital must be in (0, 1], got %v", l.MaxPositionPctOfCapital)
	}
	if l.MinRewardToRiskIntraday <= 0 || l.MinRewardToRiskCarry <= 0 {
		return fmt.Errorf("minimum reward:risk ratios must be positive")
	}
	return nil
}
