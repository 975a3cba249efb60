package journal

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// Evidence types reported in journal metadata.
const (
	EvidenceImage = "image"
	EvidencePDF   = "pdf"
	EvidenceVideo = "video"
	EvidenceFile  = "file"
)

// Evidence is the closed set of shapes a case's attachments can take.
// Repositories resolve stored fields into one of these once, at read time.
type Evidence interface {
	isEvidence()
}

// NoEvidence means the case carries no attachments.
type NoEvidence struct{}

// SingleURL is one attachment. Type, when set, wins over extension sniffing.
// An empty URL with a Type records a declared attachment without a link.
type SingleURL struct {
	URL  string
	Type string
}

// URLList is a list of attachments whose types are sniffed from extensions.
type URLList struct {
	URLs []string
}

// AggregatedCount is a pre-computed summary stored alongside the case.
type AggregatedCount struct {
	Count int
	Types []string
}

// Combined joins several shapes found on the same record.
type Combined []Evidence

func (NoEvidence) isEvidence()      {}
func (SingleURL) isEvidence()       {}
func (URLList) isEvidence()         {}
func (AggregatedCount) isEvidence() {}
func (Combined) isEvidence()        {}

// EvidenceMetadata is the link-free description of a case's attachments.
type EvidenceMetadata struct {
	Count int      `json:"count"`
	Types []string `json:"types"`
}

// SummarizeEvidence counts attachments and collects their types without
// retaining any URL, filename or path.
func SummarizeEvidence(e Evidence) EvidenceMetadata {
	types := make(map[string]struct{})
	count := accumulate(e, types)

	out := EvidenceMetadata{Count: count, Types: make([]string, 0, len(types))}
	for t := range types {
		out.Types = append(out.Types, t)
	}
	sort.Strings(out.Types)
	return out
}

func accumulate(e Evidence, types map[string]struct{}) int {
	switch ev := e.(type) {
	case nil, NoEvidence:
		return 0
	case SingleURL:
		if ev.Type != "" {
			types[ev.Type] = struct{}{}
		} else if ev.URL != "" {
			types[SniffType(ev.URL)] = struct{}{}
		} else {
			return 0
		}
		return 1
	case URLList:
		for _, u := range ev.URLs {
			types[SniffType(u)] = struct{}{}
		}
		return len(ev.URLs)
	case AggregatedCount:
		for _, t := range ev.Types {
			if t != "" {
				types[t] = struct{}{}
			}
		}
		if ev.Count < 0 {
			return 0
		}
		return ev.Count
	case Combined:
		n := 0
		for _, part := range ev {
			n += accumulate(part, types)
		}
		return n
	default:
		return 0
	}
}

var extensionTypes = map[string]string{
	"jpg":  EvidenceImage,
	"jpeg": EvidenceImage,
	"png":  EvidenceImage,
	"gif":  EvidenceImage,
	"webp": EvidenceImage,
	"heic": EvidenceImage,
	"heif": EvidenceImage,
	"bmp":  EvidenceImage,
	"svg":  EvidenceImage,
	"pdf":  EvidencePDF,
	"mp4":  EvidenceVideo,
	"mov":  EvidenceVideo,
	"webm": EvidenceVideo,
	"avi":  EvidenceVideo,
	"mkv":  EvidenceVideo,
	"m4v":  EvidenceVideo,
}

// SniffType infers an evidence type from the extension of a URL or file
// name. Query strings and fragments are ignored.
func SniffType(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(raw, "?#"); i >= 0 {
		p = raw[:i]
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return EvidenceFile
}
