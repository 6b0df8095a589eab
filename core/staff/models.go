package staff

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/person"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Leaders
	RoleLeader        = "leader:"
	RoleServiceLeader = "leader:service"
	RoleClassTeacher  = "leader:class"

	// Servant
	RoleServant = "servant:"
)

var (
	AdminRoles   = []string{RoleAdmin}
	LeaderRoles  = []string{RoleServiceLeader, RoleClassTeacher}
	ServantRoles = []string{RoleServant}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdmin: 21,

		// Leaders: 20 - 11
		RoleServiceLeader: 15,
		RoleClassTeacher:  11,

		// Servants: 10 - 1
		RoleServant: 1,
	}

	Roles = []Role{
		{Name: "Servant", Value: RoleServant},
		{Name: "Class Teacher", Value: RoleClassTeacher},
		{Name: "Service Leader", Value: RoleServiceLeader},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, LeaderRoles...)
	all = append(all, ServantRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Staff struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"isActive"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    null.Time `json:"lastLogin"` // UTC
}

func (s *Staff) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Staff) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

func (s *Staff) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Staff) RoleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s *Staff) IsAdmin() bool         { return s.RoleStartsWith(RoleAdmin) }
func (s *Staff) IsServiceLeader() bool { return s.HasRole(RoleServiceLeader) }
func (s *Staff) IsClassTeacher() bool  { return s.HasRole(RoleClassTeacher) }
func (s *Staff) IsServant() bool       { return s.RoleStartsWith(RoleServant) }

// CanViewFollowUp reports whether the staff may read the follow-up list of population t.
// Class teachers only follow children up.
func (s *Staff) CanViewFollowUp(t person.Type) bool {
	if s.IsAdmin() || s.IsServiceLeader() {
		return true
	}
	return t == person.TypeChild && s.IsClassTeacher()
}

// CanManageIgnores reports whether the staff may silence or restore follow-up for a person.
func (s *Staff) CanManageIgnores() bool {
	return s.IsAdmin() || s.IsServiceLeader()
}

// NewStaff contains information needed to create a new Staff.
type NewStaff struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (ns *NewStaff) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
}

// LoginCredentials identify a staff by username or email.
type LoginCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
