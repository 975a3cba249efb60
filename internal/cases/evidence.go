package cases

import (
	"encoding/json"
	"strings"

	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/models"
)

// storedAggregate is the pre-aggregated evidence JSON. Older rows carry a
// single "type" instead of "types".
type storedAggregate struct {
	Count *int     `json:"count"`
	Types []string `json:"types"`
	Type  string   `json:"type"`
}

// evidenceOf resolves a case row's evidence columns into the journal's sum
// type. Shapes found together are combined and their counts add up.
func evidenceOf(c models.Case) journal.Evidence {
	var parts journal.Combined

	if c.EvidenceURL != "" {
		parts = append(parts, journal.SingleURL{URL: c.EvidenceURL, Type: c.EvidenceType})
	}

	if len(c.EvidenceURLs) > 0 {
		var urls []string
		if err := json.Unmarshal(c.EvidenceURLs, &urls); err == nil {
			if urls = nonEmpty(urls); len(urls) > 0 {
				parts = append(parts, journal.URLList{URLs: urls})
			}
		}
	}

	aggregateTypes := map[string]bool{}
	if len(c.EvidenceAggregate) > 0 {
		var agg storedAggregate
		if err := json.Unmarshal(c.EvidenceAggregate, &agg); err == nil {
			types := nonEmpty(agg.Types)
			if agg.Type != "" {
				types = append(types, agg.Type)
			}
			count := 0
			if agg.Count != nil && *agg.Count > 0 {
				count = *agg.Count
			}
			if count > 0 || len(types) > 0 {
				parts = append(parts, journal.AggregatedCount{Count: count, Types: types})
				for _, t := range types {
					aggregateTypes[t] = true
				}
			}
		}
	}

	// A declared type without a URL still records one attachment
	if c.EvidenceURL == "" && c.EvidenceType != "" && !aggregateTypes[c.EvidenceType] {
		if len(parts) == 0 {
			parts = append(parts, journal.SingleURL{Type: c.EvidenceType})
		} else {
			parts = append(parts, journal.AggregatedCount{Types: []string{c.EvidenceType}})
		}
	}

	switch len(parts) {
	case 0:
		return journal.NoEvidence{}
	case 1:
		return parts[0]
	default:
		return parts
	}
}

// GuessEvidenceType maps an upload's MIME type to a journal evidence type
func GuessEvidenceType(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return journal.EvidenceImage
	case mt == "application/pdf":
		return journal.EvidencePDF
	case strings.HasPrefix(mt, "video/"):
		return journal.EvidenceVideo
	default:
		return journal.EvidenceFile
	}
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
