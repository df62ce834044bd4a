// Package history persists scenario runs. Each run is stored as one JSON
// document in an embedded lemon database, keyed scenario:<uuid> and tagged
// with its state and name so comparison lookups stay cheap.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/denismitr/lemon"

	"github.com/kartoza/cplus-engine/internal/model"
)

// keyPrefix namespaces scenario documents inside the database file.
const keyPrefix = "scenario:"

// Entry is one persisted run: the definition that produced it and the result.
type Entry struct {
	Scenario *model.Scenario       `json:"scenario"`
	Result   *model.ScenarioResult `json:"result"`
}

// Store is a scenario history backed by a lemon database file.
type Store struct {
	db     *lemon.DB
	closer lemon.Closer
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, closer, err := lemon.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}
	return &Store{db: db, closer: closer}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.closer()
}

// Save upserts one run under its scenario uuid.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	if entry.Scenario == nil || entry.Result == nil {
		return fmt.Errorf("history: entry needs both scenario and result")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("history: encode entry: %w", err)
	}

	key := keyPrefix + entry.Scenario.UUID
	tags := lemon.WithTags().
		Str("state", entry.Result.State.String()).
		Str("name", tagSafe(entry.Scenario.Name))

	return s.db.Update(ctx, func(tx *lemon.Tx) error {
		return tx.InsertOrReplace(key, string(payload), tags)
	})
}

// Get loads one run by scenario uuid.
func (s *Store) Get(ctx context.Context, scenarioUUID string) (Entry, error) {
	var entry Entry
	err := s.db.View(ctx, func(tx *lemon.Tx) error {
		doc, err := tx.Get(keyPrefix + scenarioUUID)
		if err != nil {
			return fmt.Errorf("history: scenario %s: %w", scenarioUUID, err)
		}
		return json.Unmarshal(doc.Value(), &entry)
	})
	return entry, err
}

// Delete removes one run.
func (s *Store) Delete(ctx context.Context, scenarioUUID string) error {
	return s.db.Update(ctx, func(tx *lemon.Tx) error {
		return tx.Remove(keyPrefix + scenarioUUID)
	})
}

// List returns every stored run, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var docs []*lemon.Document
	err := s.db.View(ctx, func(tx *lemon.Tx) error {
		found, err := tx.Find(lemon.Q().Match(keyPrefix + "*"))
		if err != nil {
			return err
		}
		docs = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return decodeAll(docs)
}

// ListByState returns the runs in the given state, newest first.
func (s *Store) ListByState(ctx context.Context, state model.ScenarioState) ([]Entry, error) {
	var docs []*lemon.Document
	err := s.db.View(ctx, func(tx *lemon.Tx) error {
		q := lemon.Q().
			Match(keyPrefix + "*").
			HasAllTags(lemon.QT().StrTagEq("state", state.String()))
		found, err := tx.Find(q)
		if err != nil {
			return err
		}
		docs = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: list by state: %w", err)
	}
	return decodeAll(docs)
}

// ForComparison loads the named runs in the order given, failing on the
// first miss so comparison reports never silently drop a column.
func (s *Store) ForComparison(ctx context.Context, scenarioUUIDs []string) ([]Entry, error) {
	if len(scenarioUUIDs) < 2 {
		return nil, fmt.Errorf("history: comparison needs at least two scenarios")
	}
	entries := make([]Entry, 0, len(scenarioUUIDs))
	for _, id := range scenarioUUIDs {
		entry, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// tagSafe strips the characters the tag storage format reserves. The full
// name still lives in the document body; the tag is only an index.
func tagSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')':
			return ' '
		default:
			return r
		}
	}, name)
}

// decodeAll unmarshals matched documents and orders them newest first.
func decodeAll(docs []*lemon.Document) ([]Entry, error) {
	entries := make([]Entry, 0, len(docs))
	for i := range docs {
		var entry Entry
		if err := json.Unmarshal(docs[i].Value(), &entry); err != nil {
			return nil, fmt.Errorf("history: decode %s: %w", docs[i].Key(), err)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Result.StartedAt.After(entries[j].Result.StartedAt)
	})
	return entries, nil
}
