package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kanisa/core/person"
)

type personRepository struct {
	db      *personTable
	classes *classTable
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *DB) *personRepository {
	return &personRepository{db: db.person, classes: db.class}
}

// withClass resolves the class name, which may have changed since the person was saved.
func (repo *personRepository) withClass(p person.Person) person.Person {
	if p.Class == nil {
		return p
	}
	repo.classes.mutex.RLock()
	defer repo.classes.mutex.RUnlock()
	if c, ok := repo.classes.table[p.Class.ID]; ok {
		cls := *c
		p.Class = &cls
	}
	return p
}

func (repo *personRepository) ListActivePeople(_ context.Context, t person.Type) ([]person.Person, error) {
	repo.db.mutex.RLock()
	people := make([]person.Person, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		if p.Type == t && p.IsActive {
			people = append(people, *p)
		}
	}
	repo.db.mutex.RUnlock()

	for i := range people {
		people[i] = repo.withClass(people[i])
	}
	sort.Slice(people, func(i, j int) bool {
		if people[i].Name != people[j].Name {
			return people[i].Name < people[j].Name
		}
		return people[i].ID < people[j].ID
	})
	return people, nil
}

func (repo *personRepository) GetPerson(_ context.Context, id string) (person.Person, error) {
	repo.db.mutex.RLock()
	p, ok := repo.db.table[id]
	repo.db.mutex.RUnlock()
	if !ok {
		return person.Person{}, person.ErrNotFound
	}
	return repo.withClass(*p), nil
}

func (repo *personRepository) SavePerson(ctx context.Context, p person.Person) (person.Person, error) {
	repo.db.mutex.Lock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if orig, ok := repo.db.table[p.ID]; ok {
		p.CreatedAt = orig.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Class != nil {
		cls := *p.Class
		p.Class = &cls
	}
	repo.db.table[p.ID] = &p
	repo.db.mutex.Unlock()
	return repo.GetPerson(ctx, p.ID)
}

func (repo *personRepository) SaveClass(_ context.Context, c person.Class) (person.Class, error) {
	repo.classes.mutex.Lock()
	defer repo.classes.mutex.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	repo.classes.table[c.ID] = &c
	return c, nil
}

func (repo *personRepository) GetClassByName(_ context.Context, name string) (person.Class, error) {
	repo.classes.mutex.RLock()
	defer repo.classes.mutex.RUnlock()
	for _, c := range repo.classes.table {
		if c.Name == name {
			return *c, nil
		}
	}
	return person.Class{}, person.ErrClassNotFound
}
