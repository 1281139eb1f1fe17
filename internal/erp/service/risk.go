package service

import (
	"strings"
	"time"

	"github.com/Frankie2101/GSM-sub000/internal/config"
)

// Default WIP risk thresholds.
const (
	DefaultShortQtyRatio      = 0.95
	DefaultShortQtyDays       = 3
	DefaultPaceElapsedRatio   = 0.5
	DefaultPaceFactor         = 0.8
	DefaultSewingNeckWIP      = 5000
	DefaultMaterialAtRiskDays = 3
)

// Risk remark labels.
const (
	RiskNotStarted = "Not Started"
	RiskShortQty   = "Short Qty Risk"
	RiskBehindPace = "Behind Pace"
	RiskSewingNeck = "Sewing Neck"
)

// Material arrival risk tiers.
const (
	MaterialDelayed = "Delayed"
	MaterialAtRisk  = "At Risk"
	MaterialOnTrack = "On Track"
)

type RiskThresholds struct {
	ShortQtyRatio      float64
	ShortQtyDays       int
	PaceElapsedRatio   float64
	PaceFactor         float64
	SewingNeckWIP      float64
	MaterialAtRiskDays int
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		ShortQtyRatio:      DefaultShortQtyRatio,
		ShortQtyDays:       DefaultShortQtyDays,
		PaceElapsedRatio:   DefaultPaceElapsedRatio,
		PaceFactor:         DefaultPaceFactor,
		SewingNeckWIP:      DefaultSewingNeckWIP,
		MaterialAtRiskDays: DefaultMaterialAtRiskDays,
	}
}

// RiskThresholdsFromConfig applies configured values over the defaults.
// Zero values keep the default.
func RiskThresholdsFromConfig(cfg config.RiskConfig) RiskThresholds {
	th := DefaultRiskThresholds()
	if cfg.ShortQtyRatio > 0 {
		th.ShortQtyRatio = cfg.ShortQtyRatio
	}
	if cfg.ShortQtyDays > 0 {
		th.ShortQtyDays = cfg.ShortQtyDays
	}
	if cfg.PaceElapsedRatio > 0 {
		th.PaceElapsedRatio = cfg.PaceElapsedRatio
	}
	if cfg.PaceFactor > 0 {
		th.PaceFactor = cfg.PaceFactor
	}
	if cfg.SewingNeckWIP > 0 {
		th.SewingNeckWIP = cfg.SewingNeckWIP
	}
	if cfg.MaterialAtRisk > 0 {
		th.MaterialAtRiskDays = cfg.MaterialAtRisk
	}
	return th
}

// RiskSnapshot is the immutable view of one WIP row the rules evaluate.
// All dates are calendar days in UTC.
type RiskSnapshot struct {
	Today           time.Time
	ProductionStart *time.Time
	ShipDate        *time.Time
	OrderedQty      float64
	CutQty          float64
	SewQty          float64
	PackQty         float64
	CutWIP          float64
}

// RiskRule labels a row when Match holds. A terminal match stops evaluation.
type RiskRule struct {
	Label    string
	Terminal bool
	Match    func(s RiskSnapshot, th RiskThresholds) bool
}

// RiskRules in priority order.
var RiskRules = []RiskRule{
	{Label: RiskNotStarted, Terminal: true, Match: notStarted},
	{Label: RiskShortQty, Match: shortQty},
	{Label: RiskBehindPace, Match: behindPace},
	{Label: RiskSewingNeck, Match: sewingNeck},
}

func notStarted(s RiskSnapshot, _ RiskThresholds) bool {
	return s.ProductionStart != nil && s.ProductionStart.Before(s.Today) && s.CutQty == 0
}

func shortQty(s RiskSnapshot, th RiskThresholds) bool {
	if s.ShipDate == nil || s.OrderedQty <= 0 {
		return false
	}
	warnFrom := s.ShipDate.AddDate(0, 0, -th.ShortQtyDays)
	return !s.Today.Before(warnFrom) && s.PackQty < th.ShortQtyRatio*s.OrderedQty
}

func behindPace(s RiskSnapshot, th RiskThresholds) bool {
	if s.ProductionStart == nil || s.ShipDate == nil || s.OrderedQty <= 0 {
		return false
	}
	if !s.Today.After(*s.ProductionStart) || !s.Today.Before(*s.ShipDate) {
		return false
	}
	totalDays := daysBetween(*s.ProductionStart, *s.ShipDate)
	if totalDays <= 0 {
		return false
	}
	elapsed := float64(daysBetween(*s.ProductionStart, s.Today)) / float64(totalDays)
	sewn := s.SewQty / s.OrderedQty
	return elapsed > th.PaceElapsedRatio && sewn < th.PaceFactor*elapsed
}

func sewingNeck(s RiskSnapshot, th RiskThresholds) bool {
	return s.CutWIP > th.SewingNeckWIP
}

// EvaluateRisk returns the comma-joined labels of every matching rule, or ""
// when nothing matches.
func EvaluateRisk(s RiskSnapshot, th RiskThresholds) string {
	var labels []string
	for _, r := range RiskRules {
		if !r.Match(s, th) {
			continue
		}
		if r.Terminal {
			return r.Label
		}
		labels = append(labels, r.Label)
	}
	return strings.Join(labels, ", ")
}

// ClassifyMaterialRisk maps arrival minus production start (days) to a tier.
func ClassifyMaterialRisk(days int, th RiskThresholds) string {
	switch {
	case days < 0:
		return MaterialDelayed
	case days <= th.MaterialAtRiskDays:
		return MaterialAtRisk
	default:
		return MaterialOnTrack
	}
}
