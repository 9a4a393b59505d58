// Package history persists chat sessions per account on top of the keyed
// byte store. Keys take the form "<accountKey>/<sessionID>"; every
// operation against an unauthenticated account is a silent no-op so
// nothing is ever read or written for a signed-out user.
package history

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sidekick/internal/identity"
	"sidekick/internal/storage"
	"sidekick/internal/transcript"
)

// DefaultBudgetBytes is the soft size budget for one account's serialized
// history: 50,000 KB. Crossing it makes SaveChat report a warning; it
// never blocks the save itself.
const DefaultBudgetBytes = 50_000 * 1024

// Store reads and writes per-account session history.
type Store struct {
	chats    storage.KV
	frequent storage.KV
	budget   int
	logger   *zap.Logger
}

// New creates a Store over kv. The "history" and "frequent" namespaces of
// kv are claimed by this store. A budget of 0 selects the default.
func New(kv storage.KV, budget int, logger *zap.Logger) *Store {
	if budget <= 0 {
		budget = DefaultBudgetBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		chats:    storage.Namespaced(kv, "history"),
		frequent: storage.Namespaced(kv, "frequent"),
		budget:   budget,
		logger:   logger,
	}
}

func chatKey(accountKey, sessionID string) string {
	return accountKey + "/" + sessionID
}

// GetChat loads one session. The second result is false when the account
// is unauthenticated or the session does not exist.
func (s *Store) GetChat(account identity.Account, sessionID string) (*transcript.Transcript, bool, error) {
	if !account.Authenticated {
		return nil, false, nil
	}
	raw, ok, err := s.chats.Get(chatKey(account.Key(), sessionID))
	if err != nil || !ok {
		return nil, false, err
	}
	var tr transcript.Transcript
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, false, fmt.Errorf("corrupt session %s: %w", sessionID, err)
	}
	return &tr, true, nil
}

// SaveChat stores the session under its id, overwriting any previous
// version. It returns true when the account's serialized history has
// crossed the soft size budget.
func (s *Store) SaveChat(account identity.Account, tr *transcript.Transcript) (bool, error) {
	if !account.Authenticated || tr == nil {
		return false, nil
	}
	raw, err := json.Marshal(tr)
	if err != nil {
		return false, fmt.Errorf("encode session %s: %w", tr.ID, err)
	}
	if err := s.chats.Set(chatKey(account.Key(), tr.ID), raw); err != nil {
		return false, err
	}

	size, err := s.accountSize(account)
	if err != nil {
		s.logger.Warn("could not measure history size", zap.Error(err))
		return false, nil
	}
	if size > s.budget {
		s.logger.Warn("chat history over size budget",
			zap.String("account", account.Key()),
			zap.Int("bytes", size),
			zap.Int("budget", s.budget))
		return true, nil
	}
	return false, nil
}

// DeleteChat removes one session. Absent sessions are not an error.
func (s *Store) DeleteChat(account identity.Account, sessionID string) error {
	if !account.Authenticated {
		return nil
	}
	return s.chats.Delete(chatKey(account.Key(), sessionID))
}

// ListChats returns every stored session for the account, newest first.
func (s *Store) ListChats(account identity.Account) ([]*transcript.Transcript, error) {
	if !account.Authenticated {
		return nil, nil
	}
	keys, err := s.chats.Keys(account.Key() + "/")
	if err != nil {
		return nil, err
	}
	out := make([]*transcript.Transcript, 0, len(keys))
	for _, k := range keys {
		raw, ok, err := s.chats.Get(k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var tr transcript.Transcript
		if err := json.Unmarshal(raw, &tr); err != nil {
			s.logger.Warn("skipping corrupt session", zap.String("key", k), zap.Error(err))
			continue
		}
		out = append(out, &tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ImportHistory writes a batch of sessions for the account. With merge
// false the account's existing history is dropped first; with merge true
// imported sessions overlay existing ones id by id.
func (s *Store) ImportHistory(account identity.Account, sessions []*transcript.Transcript, merge bool) error {
	if !account.Authenticated {
		return nil
	}
	if !merge {
		keys, err := s.chats.Keys(account.Key() + "/")
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := s.chats.Delete(k); err != nil {
				return err
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(4)
	for _, tr := range sessions {
		tr := tr
		if tr == nil || tr.ID == "" {
			continue
		}
		g.Go(func() error {
			raw, err := json.Marshal(tr)
			if err != nil {
				return fmt.Errorf("encode session %s: %w", tr.ID, err)
			}
			return s.chats.Set(chatKey(account.Key(), tr.ID), raw)
		})
	}
	return g.Wait()
}

func (s *Store) accountSize(account identity.Account) (int, error) {
	keys, err := s.chats.Keys(account.Key() + "/")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, k := range keys {
		raw, ok, err := s.chats.Get(k)
		if err != nil {
			return 0, err
		}
		if ok {
			total += len(raw)
		}
	}
	return total, nil
}
