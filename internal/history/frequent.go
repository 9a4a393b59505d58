package history

import (
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"sidekick/internal/identity"
	"sidekick/internal/transcript"
)

// frequentEntry is one remembered context item with its attach count.
type frequentEntry struct {
	Item  transcript.ContextItem `json:"item"`
	Count int                    `json:"count"`
}

// RecordContextItems bumps the use counters for the items the user
// attached by hand. Inferred items never enter the frequently-used set;
// that is what the provenance tag exists for.
func (s *Store) RecordContextItems(account identity.Account, items []transcript.ContextItem) error {
	if !account.Authenticated {
		return nil
	}
	entries, err := s.loadFrequent(account)
	if err != nil {
		return err
	}
	changed := false
	for _, item := range items {
		if item.Provenance != transcript.ProvenanceUser || item.URI == "" {
			continue
		}
		if e, ok := entries[item.URI]; ok {
			e.Count++
			entries[item.URI] = e
		} else {
			entries[item.URI] = frequentEntry{Item: item, Count: 1}
		}
		changed = true
	}
	if !changed {
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.frequent.Set(account.Key(), raw)
}

// FrequentContextItems returns up to limit items ordered by how often the
// user attached them.
func (s *Store) FrequentContextItems(account identity.Account, limit int) ([]transcript.ContextItem, error) {
	if !account.Authenticated || limit <= 0 {
		return nil, nil
	}
	entries, err := s.loadFrequent(account)
	if err != nil {
		return nil, err
	}
	sorted := make([]frequentEntry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Item.URI < sorted[j].Item.URI
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	items := make([]transcript.ContextItem, 0, len(sorted))
	for _, e := range sorted {
		items = append(items, e.Item)
	}
	return items, nil
}

func (s *Store) loadFrequent(account identity.Account) (map[string]frequentEntry, error) {
	raw, ok, err := s.frequent.Get(account.Key())
	if err != nil {
		return nil, err
	}
	entries := make(map[string]frequentEntry)
	if ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			s.logger.Warn("resetting corrupt frequent-items record", zap.Error(err))
			return make(map[string]frequentEntry), nil
		}
	}
	return entries, nil
}
