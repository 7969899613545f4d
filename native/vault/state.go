package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"synthvault/storage"
)

// EngineState is the persistence boundary for the position ledger. The engine
// mutates positions through it under a single mutex and relies on the
// snapshot journal to make every operation all-or-nothing: a snapshot is
// taken on entry, reverted on any failure and committed once the operation
// has fully succeeded.
type EngineState interface {
	GetPosition(account common.Address) (*Position, error)
	PutPosition(pos *Position) error
	Snapshot() int
	RevertToSnapshot(id int)
	Commit() error
}

const positionKeyPrefix = "vault/pos/"

func positionKey(account common.Address) []byte {
	return []byte(positionKeyPrefix + account.Hex())
}

type journalEntry struct {
	account  common.Address
	prev     *Position
	wasDirty bool
}

type snapshot struct {
	id         int
	journalLen int
}

// KVState stores positions as JSON documents in a key-value database. Writes
// land in an in-memory overlay first and only reach the database on Commit,
// so RevertToSnapshot undoes everything an operation touched. KVState is not
// internally synchronized; the engine serializes access.
type KVState struct {
	db        storage.Database
	cache     map[common.Address]*Position
	dirty     map[common.Address]struct{}
	journal   []journalEntry
	snapshots []snapshot
	nextSnap  int
}

// NewKVState wraps the supplied database.
func NewKVState(db storage.Database) *KVState {
	return &KVState{
		db:    db,
		cache: make(map[common.Address]*Position),
		dirty: make(map[common.Address]struct{}),
	}
}

// GetPosition returns a deep copy of the stored position, or a fresh zero
// position when the account has never been written.
func (s *KVState) GetPosition(account common.Address) (*Position, error) {
	if s == nil || s.db == nil {
		return nil, errNilState
	}
	if pos, ok := s.cache[account]; ok {
		return pos.Clone(), nil
	}
	pos, err := s.load(account)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return NewPosition(account), nil
	}
	return pos, nil
}

// PutPosition records the position in the overlay, journaling the previous
// value so the write can be unwound.
func (s *KVState) PutPosition(pos *Position) error {
	if s == nil || s.db == nil {
		return errNilState
	}
	if pos == nil {
		return fmt.Errorf("vault state: nil position")
	}
	account := pos.Account
	var prev *Position
	wasDirty := false
	if cached, ok := s.cache[account]; ok {
		prev = cached.Clone()
		_, wasDirty = s.dirty[account]
	} else {
		loaded, err := s.load(account)
		if err != nil {
			return err
		}
		prev = loaded
	}
	s.journal = append(s.journal, journalEntry{account: account, prev: prev, wasDirty: wasDirty})
	s.cache[account] = pos.Clone()
	s.dirty[account] = struct{}{}
	return nil
}

// Snapshot marks the current journal length and returns an identifier for
// RevertToSnapshot.
func (s *KVState) Snapshot() int {
	if s == nil {
		return 0
	}
	id := s.nextSnap
	s.nextSnap++
	s.snapshots = append(s.snapshots, snapshot{id: id, journalLen: len(s.journal)})
	return id
}

// RevertToSnapshot unwinds every write recorded after the snapshot was taken.
// Unknown identifiers are ignored.
func (s *KVState) RevertToSnapshot(id int) {
	if s == nil {
		return
	}
	idx := -1
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	target := s.snapshots[idx].journalLen
	for len(s.journal) > target {
		entry := s.journal[len(s.journal)-1]
		s.journal = s.journal[:len(s.journal)-1]
		if entry.prev == nil {
			delete(s.cache, entry.account)
			delete(s.dirty, entry.account)
			continue
		}
		s.cache[entry.account] = entry.prev
		if !entry.wasDirty {
			delete(s.dirty, entry.account)
		}
	}
	s.snapshots = s.snapshots[:idx]
}

// Commit flushes dirty positions to the database and discards the journal.
// All positions are encoded before the first write so an encoding failure
// never leaves a partial flush. A mid-flush Put failure can still leave
// earlier puts applied; every engine operation dirties exactly one position
// (liquidations write only the target), so at most one put happens per
// commit.
func (s *KVState) Commit() error {
	if s == nil || s.db == nil {
		return errNilState
	}
	pending := make(map[common.Address][]byte, len(s.dirty))
	for account := range s.dirty {
		pos, ok := s.cache[account]
		if !ok {
			continue
		}
		encoded, err := json.Marshal(pos)
		if err != nil {
			return fmt.Errorf("vault state: encode position: %w", err)
		}
		pending[account] = encoded
	}
	for account, encoded := range pending {
		if err := s.db.Put(positionKey(account), encoded); err != nil {
			return fmt.Errorf("vault state: persist position: %w", err)
		}
	}
	s.dirty = make(map[common.Address]struct{})
	s.journal = s.journal[:0]
	s.snapshots = s.snapshots[:0]
	return nil
}

func (s *KVState) load(account common.Address) (*Position, error) {
	raw, err := s.db.Get(positionKey(account))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault state: load position: %w", err)
	}
	pos := &Position{}
	if err := json.Unmarshal(raw, pos); err != nil {
		return nil, fmt.Errorf("vault state: decode position: %w", err)
	}
	pos.Account = account
	pos.normalize()
	return pos, nil
}
