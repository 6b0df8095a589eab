package person

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kanisa/core"
)

// Type is the population a Person belongs to.
type Type string

const (
	TypeChild   Type = "child"
	TypeServant Type = "servant"
)

var (
	Types = []Type{TypeChild, TypeServant}

	// errors
	ErrNotFound      = errors.New("person not found")
	ErrClassNotFound = errors.New("class not found")
	ErrInvalidType   = errors.New("invalid person type")

	personTypeTag  = "persontype"
	personTypeText = "must be one of child or servant"
)

func (t Type) Valid() bool {
	return t == TypeChild || t == TypeServant
}

// Plural is the population's collection name, used as JSON key in follow-up lists.
func (t Type) Plural() string {
	if t == TypeServant {
		return "servants"
	}
	return "children"
}

// ParseType accepts both the singular and the plural form ("child", "children").
func ParseType(s string) (Type, error) {
	switch core.CleanString(s, true /* lower */) {
	case "child", "children":
		return TypeChild, nil
	case "servant", "servants":
		return TypeServant, nil
	}
	return "", ErrInvalidType
}

type Class struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Person is a child or a servant.
// ParentName and Class only apply to children.
type Person struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	ParentName string    `json:"parentName,omitempty"`
	Class      *Class    `json:"class,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Repository interface {
	// ListActivePeople returns the active people of one population, ordered by name.
	ListActivePeople(ctx context.Context, t Type) ([]Person, error)
	GetPerson(ctx context.Context, id string) (Person, error)
	// SavePerson inserts or updates a person by ID. An empty ID gets a new one.
	SavePerson(ctx context.Context, p Person) (Person, error)
	// SaveClass inserts or updates a class by ID. An empty ID gets a new one.
	SaveClass(ctx context.Context, c Class) (Class, error)
	GetClassByName(ctx context.Context, name string) (Class, error)
}

// InitValidators registers the person validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(personTypeTag, personTypeValidation)
	core.RegisterCustomTranslation(validate, translator, personTypeTag, personTypeText)
}

// personTypeValidation accepts a person Type in its singular or plural form.
func personTypeValidation(fl validator.FieldLevel) bool {
	_, err := ParseType(fl.Field().String())
	return err == nil
}
