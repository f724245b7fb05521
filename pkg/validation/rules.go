package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var departmentCodeRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("department_code", isDepartmentCode); err != nil {
		return err
	}
	if err := v.RegisterValidation("not_blank", isNotBlank); err != nil {
		return err
	}
	return nil
}

// isDepartmentCode accepts short identifiers such as ENG, R-AND-D or api_team.
func isDepartmentCode(fl validator.FieldLevel) bool {
	return departmentCodeRe.MatchString(fl.Field().String())
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
