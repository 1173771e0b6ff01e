package harmonize

import (
	"gopkg.in/yaml.v3"
)

// Review is a YAML friendly report of a session, listing what still needs
// an operator's attention.
type Review struct {
	Version    string        `yaml:"version"`
	SessionID  string        `yaml:"session_id"`
	Scorer     string        `yaml:"scorer"`
	Mapping    []ReviewEntry `yaml:"mapping,omitempty"`
	Unresolved []ReviewEntry `yaml:"unresolved,omitempty"`
	Skipped    []string      `yaml:"skipped,omitempty"`
}

// ReviewEntry is one raw name of a Review.
type ReviewEntry struct {
	Name        string   `yaml:"name"`
	Target      string   `yaml:"target,omitempty"`
	Source      Source   `yaml:"source,omitempty"`
	Score       float64  `yaml:"score,omitempty"`
	Custom      bool     `yaml:"custom,omitempty"`
	Suggestions []string `yaml:"suggestions,omitempty"`
}

// ExportReview summarizes res. Unresolved names carry up to limit
// suggestions from their cached ranking.
func ExportReview(res *Result, limit int) *Review {
	r := &Review{
		Version:   "1",
		SessionID: res.SessionID,
		Scorer:    res.Scorer,
	}

	for _, it := range res.Items {
		switch it.State {
		case AutoMatched, Resolved:
			r.Mapping = append(r.Mapping, ReviewEntry{
				Name:   it.Name,
				Target: it.Target,
				Source: it.Source,
				Score:  it.Score,
				Custom: !it.Canonical,
			})
		case Skipped:
			r.Skipped = append(r.Skipped, it.Name)
		default:
			entry := ReviewEntry{Name: it.Name}
			for _, c := range it.Candidates.Top(limit) {
				entry.Suggestions = append(entry.Suggestions, c.String())
			}

			r.Unresolved = append(r.Unresolved, entry)
		}
	}

	return r
}

// ExportReviewYAML is ExportReview encoded as YAML.
func ExportReviewYAML(res *Result, limit int) ([]byte, error) {
	return yaml.Marshal(ExportReview(res, limit))
}
