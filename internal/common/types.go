package common

import (
	"encoding/json"
	"strings"
	"time"
)

// InputKind is the type of identifier being scanned.
type InputKind string

const (
	KindEmail    InputKind = "email"
	KindUsername InputKind = "username"
	KindPhone    InputKind = "phone"
)

// Valid reports whether k is a supported input kind.
func (k InputKind) Valid() bool {
	switch k {
	case KindEmail, KindUsername, KindPhone:
		return true
	}
	return false
}

// Severity denotes how damaging a breach is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// BreachRecord is one breach normalized from any provider. Fields a provider
// cannot supply stay nil.
type BreachRecord struct {
	Website       string          `json:"website"`
	Year          *int            `json:"year,omitempty"`
	DataLeaked    []string        `json:"dataLeaked"`
	Severity      Severity        `json:"severity"`
	AffectedCount int64           `json:"affectedCount"`
	IsVerified    *bool           `json:"isVerified,omitempty"`
	IsFabricated  *bool           `json:"isFabricated,omitempty"`
	Title         string          `json:"title,omitempty"`
	Description   string          `json:"description,omitempty"`
	LogoURL       string          `json:"url,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// Leaks reports whether the breach exposed the given data category,
// compared case-insensitively.
func (b BreachRecord) Leaks(category string) bool {
	for _, d := range b.DataLeaked {
		if strings.EqualFold(d, category) {
			return true
		}
	}
	return false
}

// Verified is false when the provider gave no verification flag.
func (b BreachRecord) Verified() bool { return b.IsVerified != nil && *b.IsVerified }

// AccountStatus is the presence state of a platform account.
type AccountStatus string

const AccountFound AccountStatus = "found"

// PlatformAccount is a confirmed public profile.
type PlatformAccount struct {
	Platform string        `json:"platform"`
	URL      string        `json:"url"`
	Status   AccountStatus `json:"status"`
}

// Instructions tells the operator how to enable authoritative results.
type Instructions struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

// Provenance describes which source produced a breach result.
type Provenance struct {
	HasRealData  bool          `json:"hasRealData"`
	IsRealTime   bool          `json:"isRealTime"`
	DataSource   string        `json:"dataSource"`
	Warning      string        `json:"warning,omitempty"`
	Instructions *Instructions `json:"instructions,omitempty"`
}

// BreachResult is the outcome of one provider-priority resolution.
type BreachResult struct {
	Breaches []BreachRecord `json:"breaches"`
	Status   Provenance     `json:"status"`
}

// ConfidenceDetails lists the signals behind a confidence score.
type ConfidenceDetails struct {
	PlatformsFound int  `json:"platformsFound"`
	Gravatar       bool `json:"gravatar"`
}

// ConfidenceScore is an integer in [0,100].
type ConfidenceScore struct {
	Score   int               `json:"score"`
	Details ConfidenceDetails `json:"details"`
}

// ScanResult aggregates every signal gathered for one scan request.
type ScanResult struct {
	ID                string            `json:"id,omitempty"`
	Input             string            `json:"input"`
	Username          string            `json:"username"`
	Breaches          []BreachRecord    `json:"breaches"`
	BreachCheckStatus Provenance        `json:"breachCheckStatus"`
	AccountsFound     []PlatformAccount `json:"accountsFound"`
	GravatarFound     bool              `json:"gravatarFound"`
	ConfidenceScore   int               `json:"confidenceScore"`
	ConfidenceDetails ConfidenceDetails `json:"confidenceDetails"`
	EmailExposed      bool              `json:"emailExposed"`
	PhoneExposed      bool              `json:"phoneExposed"`
	ReusedUsername    bool              `json:"reusedUsername"`
	PublicVisibility  int               `json:"publicVisibility"`
	Timestamp         time.Time         `json:"timestamp"`
	DataSource        string            `json:"dataSource"`
}

// ExposureLevel is the discrete bucket of an exposure score.
type ExposureLevel string

const (
	ExposureSafe     ExposureLevel = "SAFE"
	ExposureLow      ExposureLevel = "LOW"
	ExposureModerate ExposureLevel = "MODERATE"
	ExposureHigh     ExposureLevel = "HIGH"
	ExposureCritical ExposureLevel = "CRITICAL"
)

// ExposureAssessment is the scored risk of a scan.
type ExposureAssessment struct {
	Score          int           `json:"score"`
	Level          ExposureLevel `json:"level"`
	Factors        []string      `json:"factors"`
	Recommendation string        `json:"recommendation"`
	Color          string        `json:"color"`
}
