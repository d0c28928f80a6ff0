package breach

import (
	"encoding/json"
	"time"

	"digifootprint/internal/common"
	"digifootprint/internal/gateway"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseYear returns nil when date matches none of the known layouts.
func parseYear(date string) *int {
	if date == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			y := t.Year()
			return &y
		}
	}
	return nil
}

// FromPrimaryHit maps an IntelX hit. The provider reports neither severity
// nor a population, so severity is unknown and the count is the hit itself.
func FromPrimaryHit(h gateway.RawHit) common.BreachRecord {
	website := h.Bucket
	if website == "" {
		website = h.Name
	}
	if website == "" {
		website = "Unknown"
	}
	leaked := []string{}
	if h.DataType != "" {
		leaked = append(leaked, h.DataType)
	}
	raw := h.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(h)
	}
	return common.BreachRecord{
		Website:       website,
		Year:          parseYear(h.Date),
		DataLeaked:    leaked,
		Severity:      common.SeverityUnknown,
		AffectedCount: 1,
		Raw:           raw,
	}
}

// FromSecondary maps a HIBP breach object.
func FromSecondary(b gateway.HIBPBreach) common.BreachRecord {
	severity := common.SeverityHigh
	if b.IsSpamList {
		severity = common.SeverityLow
	}
	leaked := b.DataClasses
	if leaked == nil {
		leaked = []string{}
	}
	verified, fabricated := b.IsVerified, b.IsFabricated
	return common.BreachRecord{
		Website:       b.Name,
		Year:          parseYear(b.BreachDate),
		DataLeaked:    leaked,
		Severity:      severity,
		AffectedCount: b.PwnCount,
		IsVerified:    &verified,
		IsFabricated:  &fabricated,
		Title:         b.Title,
		Description:   b.Description,
		LogoURL:       b.LogoPath,
	}
}

func fromPrimary(res gateway.PrimaryResult) []common.BreachRecord {
	out := make([]common.BreachRecord, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, FromPrimaryHit(h))
	}
	return out
}

func fromSecondary(list []gateway.HIBPBreach) []common.BreachRecord {
	out := make([]common.BreachRecord, 0, len(list))
	for _, b := range list {
		out = append(out, FromSecondary(b))
	}
	return out
}
