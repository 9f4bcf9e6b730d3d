package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"taskhub/internal/domain"
)

// RegisterCustom adds domain validations to gin's binding engine so
// request DTOs can use them in binding tags.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("rolename", validRoleName)
}

func validRoleName(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case domain.RoleAdmin, domain.RoleTeamOwner, domain.RoleProjectManager, domain.RoleMember:
		return true
	}
	return false
}
