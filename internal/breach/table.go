package breach

import (
	"strings"

	"github.com/willf/bloom"

	"digifootprint/internal/common"
)

// Entry is one row of the static breach table.
type Entry struct {
	Website       string
	Year          int
	DataLeaked    []string
	AffectedCount int64
	Severity      common.Severity
}

func (e Entry) record() common.BreachRecord {
	year := e.Year
	return common.BreachRecord{
		Website:       e.Website,
		Year:          &year,
		DataLeaked:    append([]string(nil), e.DataLeaked...),
		Severity:      e.Severity,
		AffectedCount: e.AffectedCount,
	}
}

// Table is the in-process breach dataset used when no provider can answer.
type Table struct {
	entries []Entry
	byName  map[string]int
	names   *bloom.BloomFilter
}

// NewTable indexes entries by lower-cased website name.
func NewTable(entries []Entry) *Table {
	t := &Table{
		entries: entries,
		byName:  make(map[string]int, len(entries)),
		names:   bloom.NewWithEstimates(uint(max(len(entries), 1)*10), 0.01),
	}
	for i, e := range entries {
		key := strings.ToLower(e.Website)
		if _, dup := t.byName[key]; !dup {
			t.byName[key] = i
		}
		t.names.Add([]byte(key))
	}
	return t
}

// Entries returns the rows in table order.
func (t *Table) Entries() []Entry { return t.entries }

// Lookup finds the entry for website, case-insensitively.
func (t *Table) Lookup(website string) (Entry, bool) {
	key := strings.ToLower(website)
	if !t.names.Test([]byte(key)) {
		return Entry{}, false
	}
	i, ok := t.byName[key]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// DefaultTable returns the bundled public breach dataset.
func DefaultTable() *Table {
	return NewTable([]Entry{
		{Website: "LinkedIn", Year: 2021, DataLeaked: []string{"email", "password", "phone"}, AffectedCount: 700000000, Severity: common.SeverityCritical},
		{Website: "Facebook", Year: 2021, DataLeaked: []string{"email", "phone", "location"}, AffectedCount: 533000000, Severity: common.SeverityCritical},
		{Website: "Twitter", Year: 2022, DataLeaked: []string{"email", "username"}, AffectedCount: 5400000, Severity: common.SeverityHigh},
		{Website: "Twitch", Year: 2021, DataLeaked: []string{"email", "password", "oauth"}, AffectedCount: 5600000, Severity: common.SeverityHigh},
		{Website: "Uber", Year: 2022, DataLeaked: []string{"email", "phone", "location"}, AffectedCount: 57000000, Severity: common.SeverityCritical},
		{Website: "Pinterest", Year: 2023, DataLeaked: []string{"email", "username"}, AffectedCount: 3000000, Severity: common.SeverityHigh},
		{Website: "GitHub", Year: 2020, DataLeaked: []string{"email", "token"}, AffectedCount: 1000000, Severity: common.SeverityHigh},
		{Website: "Instagram", Year: 2021, DataLeaked: []string{"email", "phone"}, AffectedCount: 49000000, Severity: common.SeverityCritical},
		{Website: "Amazon", Year: 2022, DataLeaked: []string{"email", "password"}, AffectedCount: 2000000, Severity: common.SeverityHigh},
		{Website: "Shopify", Year: 2021, DataLeaked: []string{"email", "payment"}, AffectedCount: 500000, Severity: common.SeverityCritical},
	})
}
