package transcript

import (
	"sort"

	"botchat/activity"
)

// Citation is a source reference shown under a bot message.
type Citation struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ExtractCitations returns the citations of the first schema.org Message
// entity, ordered by position. Entries with neither a name nor a URL are
// dropped; a missing position counts as 0.
func ExtractCitations(entities []activity.Entity) []Citation {
	for _, e := range entities {
		if !e.IsMessageEntity() || len(e.Citations) == 0 {
			continue
		}

		kept := make([]activity.Citation, 0, len(e.Citations))
		for _, c := range e.Citations {
			if c.Appearance.URL == "" && c.Appearance.Name == "" {
				continue
			}
			kept = append(kept, c)
		}
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Position < kept[j].Position
		})

		out := make([]Citation, 0, len(kept))
		for _, c := range kept {
			out = append(out, Citation{ID: c.ID, Name: c.Appearance.Name, URL: c.Appearance.URL})
		}
		return out
	}
	return nil
}
