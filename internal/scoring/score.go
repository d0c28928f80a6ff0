// Package scoring maps scan results to confidence and exposure assessments.
// Every function here is pure.
package scoring

import (
	"fmt"

	"digifootprint/internal/common"
)

// Confidence weighs verifiable public signals: 20 points per platform up to
// 80, plus 20 for a public avatar.
func Confidence(accounts int, avatar bool) common.ConfidenceScore {
	score := min(80, max(accounts, 0)*20)
	if avatar {
		score += 20
	}
	return common.ConfidenceScore{
		Score: clamp(score),
		Details: common.ConfidenceDetails{
			PlatformsFound: max(accounts, 0),
			Gravatar:       avatar,
		},
	}
}

// Exposure scores a scan. Each signal contributes a capped amount so no
// single category can saturate the score.
func Exposure(r *common.ScanResult) common.ExposureAssessment {
	if r == nil {
		return common.ExposureAssessment{
			Score:          0,
			Level:          common.ExposureSafe,
			Factors:        []string{"No scan data provided"},
			Recommendation: "Please provide a valid scan result.",
			Color:          Color(common.ExposureSafe),
		}
	}

	var score int
	var factors []string

	if n := len(r.Breaches); n > 0 {
		score += 15 + min(n*5, 25)
		factors = append(factors, fmt.Sprintf("%d data breach(es) detected", n))
	}

	verified := 0
	for _, b := range r.Breaches {
		if b.Verified() {
			verified++
		}
	}
	if verified > 0 {
		score += min(verified*10, 20)
		factors = append(factors, fmt.Sprintf("%d verified breach(es) with confirmed data exposure", verified))
	}

	accounts := len(r.AccountsFound)
	if accounts > 0 {
		score += min(accounts*2, 15)
		factors = append(factors, fmt.Sprintf("%d linked public profile(s) discovered", accounts))
	}
	if r.PhoneExposed {
		score += 10
		factors = append(factors, "Phone number identified in compromised datasets")
	}
	if r.EmailExposed {
		score += 5
		factors = append(factors, "Email address identified in compromised datasets")
	}
	if r.ReusedUsername && accounts > 2 {
		score += 5
		factors = append(factors, "Identity linkage: Similar username across multiple services")
	}
	if r.GravatarFound {
		score += 5
		factors = append(factors, "Public Gravatar profile detected")
	}

	if len(factors) == 0 {
		factors = []string{"Minimal digital footprint detected"}
	}
	score = clamp(score)
	level := Level(score)
	return common.ExposureAssessment{
		Score:          score,
		Level:          level,
		Factors:        factors,
		Recommendation: Recommendation(score),
		Color:          Color(level),
	}
}

// Level buckets a score: 0 SAFE, 1-15 LOW, 16-40 MODERATE, 41-70 HIGH,
// above that CRITICAL.
func Level(score int) common.ExposureLevel {
	switch {
	case score <= 0:
		return common.ExposureSafe
	case score <= 15:
		return common.ExposureLow
	case score <= 40:
		return common.ExposureModerate
	case score <= 70:
		return common.ExposureHigh
	default:
		return common.ExposureCritical
	}
}

var recommendations = map[common.ExposureLevel]string{
	common.ExposureSafe:     "Your data appears to be safe. Continue monitoring.",
	common.ExposureLow:      "Minor exposure detected. Review suggestions to improve security.",
	common.ExposureModerate: "Moderate exposure. Follow the recommended actions promptly.",
	common.ExposureHigh:     "Significant exposure. Act on urgent recommendations immediately.",
	common.ExposureCritical: "Critical exposure. High-priority action required. Change passwords and enable 2FA now.",
}

func Recommendation(score int) string {
	return recommendations[Level(score)]
}

var colors = map[common.ExposureLevel]string{
	common.ExposureSafe:     "#10b981",
	common.ExposureLow:      "#3b82f6",
	common.ExposureModerate: "#f59e0b",
	common.ExposureHigh:     "#ef4444",
	common.ExposureCritical: "#7c2d12",
}

// Color returns the display color for level, grey when unknown.
func Color(level common.ExposureLevel) string {
	if c, ok := colors[level]; ok {
		return c
	}
	return "#6b7280"
}

func clamp(score int) int {
	return min(max(score, 0), 100)
}
