package staff

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kanisa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("staff not found")
	ErrEmailExists        = errors.New("a staff with this email already exists")
	ErrUsernameExists     = errors.New("a staff with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when another staff,
		// not listed in excludedIDs, already uses username or email.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
		CreateStaff(ctx context.Context, s Staff) (Staff, error)
		ListStaff(ctx context.Context) ([]Staff, error)
		GetStaffByID(ctx context.Context, id string) (Staff, error)
		GetStaffByUsernameOrEmail(ctx context.Context, username string) (Staff, error)
		UpdateStaff(ctx context.Context, s Staff) (Staff, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, excludedIDs...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Staff{}, core.TranslateValidationErrors(err, svc.translator)
	}
	if err := svc.checkUniqueness(ctx, ns.Username, ns.Email); err != nil {
		return Staff{}, err
	}

	now := time.Now().UTC()
	s := Staff{
		Name:      ns.Name,
		Username:  ns.Username,
		Email:     ns.Email,
		IsActive:  true,
		Roles:     ns.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.SetPassword(ns.Password); err != nil {
		return Staff{}, err
	}
	return svc.repo.CreateStaff(ctx, s)
}

func (svc *Service) List(ctx context.Context) ([]Staff, error) {
	return svc.repo.ListStaff(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Staff, error) {
	return svc.repo.GetStaffByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate checks the credentials of an active staff and records the login.
func (svc *Service) Authenticate(ctx context.Context, creds LoginCredentials) (Staff, error) {
	if err := svc.validate.Struct(creds); err != nil {
		return Staff{}, core.TranslateValidationErrors(err, svc.translator)
	}
	s, err := svc.GetByUsernameOrEmail(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Staff{}, ErrInvalidCredentials
		}
		return Staff{}, err
	}
	if !s.IsActive || s.CheckPassword(creds.Password) != nil {
		return Staff{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	s.LastLogin = null.TimeFrom(now)
	s.UpdatedAt = now
	return svc.repo.UpdateStaff(ctx, s)
}

// SetPassword replaces the password of the staff identified by username or email.
// The new password must follow the password policy.
func (svc *Service) SetPassword(ctx context.Context, uname, pwd string) (Staff, error) {
	if err := CheckPasswordPolicy(pwd); err != nil {
		return Staff{}, err
	}
	s, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return Staff{}, err
	}
	if err := s.SetPassword(pwd); err != nil {
		return Staff{}, err
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStaff(ctx, s)
}

// Save updates the staff matching s.Username or s.Email, or creates it.
func (svc *Service) Save(ctx context.Context, s Staff) (Staff, error) {
	s.Username = core.CleanString(s.Username, true /* lower */)
	s.Email = core.CleanString(s.Email, true /* lower */)

	now := time.Now().UTC()
	s.UpdatedAt = now
	for _, key := range []string{s.Username, s.Email} {
		if key == "" {
			continue
		}
		existing, err := svc.repo.GetStaffByUsernameOrEmail(ctx, key)
		if err == nil {
			s.ID = existing.ID
			s.CreatedAt = existing.CreatedAt
			s.LastLogin = existing.LastLogin
			if s.Name == "" {
				s.Name = existing.Name
			}
			return svc.repo.UpdateStaff(ctx, s)
		} else if !errors.Is(err, ErrNotFound) {
			return Staff{}, err
		}
	}
	if s.Name == "" {
		s.Name = s.Username
	}
	s.CreatedAt = now
	return svc.repo.CreateStaff(ctx, s)
}
