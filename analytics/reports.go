package analytics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalyticsReport is the canonical report shape. Section order is
// fixed: mission summary, top performers, weapon stats, platform
// comparison, altitude bands, range bands.
type AnalyticsReport struct {
	GeneratedAt        string               `json:"generated_at"`
	ConvoyID           *uuid.UUID           `json:"convoy_id,omitempty"`
	MissionSummary     *MissionSummary      `json:"mission_summary,omitempty"`
	TopPerformers      []DronePerformance   `json:"top_performers"`
	WeaponStats        []WeaponStats        `json:"weapon_stats"`
	PlatformComparison []PlatformComparison `json:"platform_comparison"`
	AccuracyByAltitude []BandAccuracy       `json:"accuracy_by_altitude"`
	AccuracyByRange    []BandAccuracy       `json:"accuracy_by_range"`
}

// classificationFooter closes every rendered report.
const classificationFooter = "UNCLASSIFIED // FOUO"

// GenerateReport assembles the full report, optionally scoped to one
// convoy.
func (e *Engine) GenerateReport(convoyID *uuid.UUID) (*AnalyticsReport, error) {
	report := &AnalyticsReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		ConvoyID:    convoyID,
	}

	if convoyID != nil {
		summary, err := e.MissionSummary(*convoyID)
		if err != nil {
			return nil, err
		}
		report.MissionSummary = summary
	}

	var err error
	if report.TopPerformers, err = e.TopPerformers(10); err != nil {
		return nil, err
	}
	if report.WeaponStats, err = e.WeaponEffectiveness(convoyID); err != nil {
		return nil, err
	}
	if report.PlatformComparison, err = e.PlatformComparison(); err != nil {
		return nil, err
	}
	if report.AccuracyByAltitude, err = e.AccuracyByAltitude(); err != nil {
		return nil, err
	}
	if report.AccuracyByRange, err = e.AccuracyByRange(); err != nil {
		return nil, err
	}
	return report, nil
}

// GenerateReportJSON renders the report as indented JSON.
func (e *Engine) GenerateReportJSON(convoyID *uuid.UUID) (string, error) {
	report, err := e.GenerateReport(convoyID)
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GenerateReportMarkdown renders the report as Markdown tables.
func (e *Engine) GenerateReportMarkdown(convoyID *uuid.UUID) (string, error) {
	report, err := e.GenerateReport(convoyID)
	if err != nil {
		return "", err
	}

	var md strings.Builder
	md.WriteString("# Drone Convoy Analytics Report\n\n")
	fmt.Fprintf(&md, "**Generated:** %s\n\n", report.GeneratedAt)

	if summary := report.MissionSummary; summary != nil {
		md.WriteString("## Mission Summary\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		fmt.Fprintf(&md, "| Total Drones | %d |\n", summary.TotalDrones)
		fmt.Fprintf(&md, "| Total Engagements | %d |\n", summary.TotalEngagements)
		fmt.Fprintf(&md, "| Total Hits | %d |\n", summary.TotalHits)
		fmt.Fprintf(&md, "| Accuracy | %.1f%% |\n", summary.AccuracyPct)
		if summary.TopPerformer != nil {
			fmt.Fprintf(&md, "| Top Performer | %s |\n", *summary.TopPerformer)
		}
		if summary.MostUsedWeapon != nil {
			fmt.Fprintf(&md, "| Most Used Weapon | %s |\n", *summary.MostUsedWeapon)
		}
		md.WriteString("\n")
	}

	if len(report.TopPerformers) > 0 {
		md.WriteString("## Top Performers\n\n")
		md.WriteString("| Rank | Callsign | Platform | Engagements | Hits | Accuracy |\n")
		md.WriteString("|------|----------|----------|-------------|------|----------|\n")
		for i, perf := range report.TopPerformers {
			fmt.Fprintf(&md, "| %d | %s | %s | %d | %d | %.1f%% |\n",
				i+1, perf.Callsign, perf.PlatformType, perf.TotalEngagements, perf.Hits, perf.AccuracyPct)
		}
		md.WriteString("\n")
	}

	if len(report.WeaponStats) > 0 {
		md.WriteString("## Weapon Effectiveness\n\n")
		md.WriteString("| Weapon | Engagements | Hits | Accuracy | Avg Range |\n")
		md.WriteString("|--------|-------------|------|----------|----------|\n")
		for _, stat := range report.WeaponStats {
			rangeStr := "N/A"
			if stat.AvgRangeKm != nil {
				rangeStr = fmt.Sprintf("%.1f km", *stat.AvgRangeKm)
			}
			fmt.Fprintf(&md, "| %s | %d | %d | %.1f%% | %s |\n",
				stat.WeaponType, stat.TotalEngagements, stat.Hits, stat.AccuracyPct, rangeStr)
		}
		md.WriteString("\n")
	}

	if len(report.PlatformComparison) > 0 {
		md.WriteString("## Platform Comparison\n\n")
		md.WriteString("| Platform | Drones | Engagements | Accuracy | Avg/Drone |\n")
		md.WriteString("|----------|--------|-------------|----------|----------|\n")
		for _, plat := range report.PlatformComparison {
			fmt.Fprintf(&md, "| %s | %d | %d | %.1f%% | %.1f |\n",
				plat.PlatformType, plat.DroneCount, plat.TotalEngagements, plat.AccuracyPct, plat.AvgEngagementsPerDrone)
		}
		md.WriteString("\n")
	}

	if len(report.AccuracyByAltitude) > 0 {
		md.WriteString("## Accuracy by Altitude\n\n")
		md.WriteString("| Altitude Band | Accuracy |\n")
		md.WriteString("|---------------|----------|\n")
		for _, band := range report.AccuracyByAltitude {
			fmt.Fprintf(&md, "| %s | %.1f%% |\n", band.Band, band.AccuracyPct)
		}
		md.WriteString("\n")
	}

	if len(report.AccuracyByRange) > 0 {
		md.WriteString("## Accuracy by Range\n\n")
		md.WriteString("| Range Band | Accuracy |\n")
		md.WriteString("|------------|----------|\n")
		for _, band := range report.AccuracyByRange {
			fmt.Fprintf(&md, "| %s | %.1f%% |\n", band.Band, band.AccuracyPct)
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n")
	md.WriteString("*Classification: " + classificationFooter + "*\n")

	return md.String(), nil
}
