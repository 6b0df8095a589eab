package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/kanisa/core/staff"
)

type staffRepository struct {
	db *staffTable
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) *staffRepository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) query() []staff.Staff {
	all := make([]staff.Staff, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return all
}

func (repo *staffRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}
	for _, s := range repo.query() {
		if _, ok := excluded[s.ID]; ok {
			continue
		}
		if username != "" && s.Username == username {
			return staff.ErrUsernameExists
		}
		if email != "" && s.Email == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(_ context.Context, s staff.Staff) (staff.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	s.ID = uuid.New().String()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *staffRepository) ListStaff(_ context.Context) ([]staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *staffRepository) GetStaffByID(_ context.Context, id string) (staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) GetStaffByUsernameOrEmail(_ context.Context, username string) (staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, s := range repo.query() {
		if (s.Username != "" && s.Username == username) || (s.Email != "" && s.Email == username) {
			return s, nil
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) UpdateStaff(_ context.Context, s staff.Staff) (staff.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.table[s.ID]; !ok {
		return staff.Staff{}, staff.ErrNotFound
	}
	repo.db.table[s.ID] = &s
	return s, nil
}
