package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kanisa/core/followup"
)

type ignoreRepository struct {
	db *ignoreTable
}

var _ followup.IgnoreRepository = (*ignoreRepository)(nil) // interface compliance check

func NewIgnoreRepository(db *DB) *ignoreRepository {
	return &ignoreRepository{db: db.ignore}
}

func (repo *ignoreRepository) ListIgnores(_ context.Context) ([]followup.IgnoreEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]followup.IgnoreEntry, 0, len(repo.db.table))
	for _, entry := range repo.db.table {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].PersonID < entries[j].PersonID
	})
	return entries, nil
}

func (repo *ignoreRepository) GetIgnore(_ context.Context, personID string) (followup.IgnoreEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if entry, ok := repo.db.table[personID]; ok {
		return *entry, nil
	}
	return followup.IgnoreEntry{}, followup.ErrIgnoreNotFound
}

func (repo *ignoreRepository) CreateIgnore(_ context.Context, entry followup.IgnoreEntry) (followup.IgnoreEntry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.table[entry.PersonID]; ok {
		return followup.IgnoreEntry{}, followup.ErrIgnoreExists
	}
	repo.db.table[entry.PersonID] = &entry
	return entry, nil
}

func (repo *ignoreRepository) DeleteIgnore(_ context.Context, personID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, personID)
	return nil
}
