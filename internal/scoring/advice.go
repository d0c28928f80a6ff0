package scoring

import (
	"sort"
	"time"

	"digifootprint/internal/common"
)

// Risk is a privacy risk that applies to a scan.
type Risk struct {
	Risk         string          `json:"risk"`
	Level        common.Severity `json:"level"`
	Description  string          `json:"description"`
	Websites     []string        `json:"websites,omitempty"`
	Platforms    []string        `json:"platforms,omitempty"`
	BreachCount  int             `json:"breachCount,omitempty"`
	AccountCount int             `json:"accountCount,omitempty"`
}

// Risks lists the privacy risks supported by the scan's findings, at most
// five.
func Risks(r *common.ScanResult) []Risk {
	risks := []Risk{}
	if r == nil {
		return risks
	}
	sites := breachSites(r.Breaches)
	platforms := platformNames(r.AccountsFound)

	if r.EmailExposed {
		risks = append(risks, Risk{
			Risk:        "Email exposed on public sites",
			Level:       common.SeverityHigh,
			Description: "Your email is visible on multiple public platforms",
			Websites:    head(sites, 3),
		})
	}
	if r.ReusedUsername && len(r.AccountsFound) > 1 {
		risks = append(risks, Risk{
			Risk:        "Same username everywhere",
			Level:       common.SeverityMedium,
			Description: "Using identical usernames makes account linking easier",
			Platforms:   head(platforms, 3),
		})
	}
	if r.PhoneExposed {
		risks = append(risks, Risk{
			Risk:        "Phone number leaked",
			Level:       common.SeverityCritical,
			Description: "Phone number has been compromised in data breaches",
			Websites:    head(sites, 2),
		})
	}
	if n := len(r.Breaches); n > 0 {
		risks = append(risks, Risk{
			Risk:        "Reused passwords",
			Level:       common.SeverityHigh,
			Description: "Using same password across multiple sites increases risk",
			BreachCount: n,
		})
	}
	if n := len(r.AccountsFound); n > 3 {
		risks = append(risks, Risk{
			Risk:         "Public profile visibility",
			Level:        common.SeverityMedium,
			Description:  "Personal information visible to anyone on the internet",
			AccountCount: n,
		})
	}
	return head(risks, 5)
}

// Suggestion is one remediation step. Lower priority values come first.
type Suggestion struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Priority     int             `json:"priority"`
	Severity     common.Severity `json:"severity,omitempty"`
	Sites        []string        `json:"sites,omitempty"`
	Platforms    []string        `json:"platforms,omitempty"`
	BreachCount  int             `json:"breachCount,omitempty"`
	AccountCount int             `json:"accountCount,omitempty"`
	Count        int             `json:"count,omitempty"`
}

// SuggestionSet groups suggestions by urgency. All is the priority-ordered
// union, truncated to eight.
type SuggestionSet struct {
	Urgent           []Suggestion `json:"urgent"`
	Recommended      []Suggestion `json:"recommended"`
	All              []Suggestion `json:"all"`
	TotalSuggestions int          `json:"totalSuggestions"`
}

func Suggestions(r *common.ScanResult) SuggestionSet {
	if r == nil {
		r = &common.ScanResult{}
	}
	urgent := []Suggestion{}
	recommended := []Suggestion{}

	if n := len(r.Breaches); n > 0 {
		urgent = append(urgent, Suggestion{
			Title:       "Change Password",
			Description: "Update password on breached accounts",
			Priority:    1,
			Sites:       head(breachSites(r.Breaches), 5),
			BreachCount: n,
		})
	}
	if n := len(r.AccountsFound); n > 0 {
		urgent = append(urgent, Suggestion{
			Title:        "Enable 2FA",
			Description:  "Add two-factor authentication for extra security",
			Priority:     1,
			Platforms:    head(platformNames(r.AccountsFound), 5),
			AccountCount: n,
		})
	}

	if r.PhoneExposed {
		recommended = append(recommended, Suggestion{
			Title:       "Remove Phone Number",
			Description: "Delete phone number from public profiles",
			Priority:    2,
			Severity:    common.SeverityCritical,
		})
	}
	if n := len(r.AccountsFound); n > 5 {
		recommended = append(recommended, Suggestion{
			Title:       "Delete Unused Accounts",
			Description: "Close accounts you no longer use",
			Priority:    2,
			Count:       n,
		})
	}
	recommended = append(recommended,
		Suggestion{Title: "Privacy Settings Audit", Description: "Review and restrict profile visibility", Priority: 2},
		Suggestion{Title: "Use Password Manager", Description: "Store complex, unique passwords safely", Priority: 1},
	)

	all := make([]Suggestion, 0, len(urgent)+len(recommended))
	all = append(all, urgent...)
	all = append(all, recommended...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority < all[j].Priority })

	return SuggestionSet{
		Urgent:           urgent,
		Recommended:      recommended,
		All:              head(all, 8),
		TotalSuggestions: len(all),
	}
}

// TimelineEntry annotates a breach with its age and urgency. YearsAgo is
// nil when the breach year is unknown.
type TimelineEntry struct {
	common.BreachRecord
	YearsAgo       *int   `json:"yearsAgo"`
	IsRecent       bool   `json:"isRecent"`
	IsSevere       bool   `json:"isSevere"`
	Position       int    `json:"position"`
	Recommendation string `json:"recommendation"`
	Urgency        string `json:"urgency"`
}

type TimelineStats struct {
	TotalBreaches  int `json:"totalBreaches"`
	RecentBreaches int `json:"recentBreaches"`
	SevereBreaches int `json:"severeBreaches"`
	OldestBreach   int `json:"oldestBreach"`
}

type Timeline struct {
	Timeline []TimelineEntry `json:"timeline"`
	Stats    *TimelineStats  `json:"stats,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// BreachTimeline orders breaches newest first relative to now. Breaches
// without a year sort last.
func BreachTimeline(breaches []common.BreachRecord, now time.Time) Timeline {
	if len(breaches) == 0 {
		return Timeline{Timeline: []TimelineEntry{}, Message: "No breaches detected - Great news!"}
	}

	sorted := append([]common.BreachRecord(nil), breaches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Year, sorted[j].Year
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	current := now.Year()
	stats := &TimelineStats{TotalBreaches: len(sorted)}
	entries := make([]TimelineEntry, 0, len(sorted))
	for i, b := range sorted {
		e := TimelineEntry{
			BreachRecord: b,
			IsSevere:     b.Severity == common.SeverityCritical || b.Severity == common.SeverityHigh,
			Position:     i,
			Urgency:      "MEDIUM",
		}
		if b.Year != nil {
			ago := current - *b.Year
			e.YearsAgo = &ago
			e.IsRecent = ago <= 2
			stats.OldestBreach = max(stats.OldestBreach, ago)
		}
		e.Recommendation = breachRecommendation(e.YearsAgo)
		if e.IsRecent {
			e.Urgency = "HIGH"
			stats.RecentBreaches++
		}
		if e.IsSevere {
			stats.SevereBreaches++
		}
		entries = append(entries, e)
	}
	return Timeline{Timeline: entries, Stats: stats}
}

func breachRecommendation(yearsAgo *int) string {
	switch {
	case yearsAgo == nil:
		return "Old breach. Likely password rehashed/expired. Still verify account activity."
	case *yearsAgo <= 1:
		return "RECENT BREACH - Change password immediately!"
	case *yearsAgo <= 3:
		return "Change password now if you haven't already. Enable 2FA."
	case *yearsAgo <= 5:
		return "If you used same password, change it. Check account for unauthorized access."
	default:
		return "Old breach. Likely password rehashed/expired. Still verify account activity."
	}
}

func breachSites(breaches []common.BreachRecord) []string {
	out := make([]string, 0, len(breaches))
	for _, b := range breaches {
		out = append(out, b.Website)
	}
	return out
}

func platformNames(accounts []common.PlatformAccount) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Platform)
	}
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
