package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-portal/core"
)

// A role is "<family>:" or "<family>:<rank>". Families are admin, teacher and student.
const (
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleTeacher        = "teacher:"
	RoleStudent        = "student:"
)

// rolePriorities ranks roles: admins 21-30, teachers 11-20, students 1-10. Unknown roles rank 0.
var rolePriorities = map[string]int{
	RoleAdminOwner:     30,
	RoleAdminPrincipal: 29,
	RoleAdmin:          21,
	RoleTeacher:        11,
	RoleStudent:        1,
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

// MaxRolePriority is the priority of the highest ranked role in roles.
func MaxRolePriority(roles []string) (max int) {
	for _, role := range roles {
		if p := RolePriority(role); p > max {
			max = p
		}
	}
	return max
}

type User struct {
	ID           int        `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	Roles        []string   `json:"roles" db:"-"`
	PasswordHash []byte     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) inFamily(family string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, family) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.inFamily(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.inFamily(RoleTeacher) }
func (u *User) IsStudent() bool { return u.inFamily(RoleStudent) }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Username, nu.Email)
}

// PasswordChange sets a new password on an existing User.
type PasswordChange struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	usr User
}

func NewPasswordChange(usr User, pwd, confirm string) PasswordChange {
	return PasswordChange{Password: pwd, PasswordConfirm: confirm, usr: usr}
}

func (pc PasswordChange) Validate(validate *validator.Validate) error {
	return validate.Struct(pc)
}
