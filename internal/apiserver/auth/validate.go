package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"mentorhub/internal/shared/model"
)

const (
	maxNameLength = 100
	// bcrypt 只使用前 72 字节
	maxPasswordBytes = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// PasswordPolicy 口令复杂度规则
type PasswordPolicy struct {
	MinLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

// DefaultPasswordPolicy 至少 8 位，包含大写、小写字母和数字
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, RequireUpper: true, RequireLower: true, RequireDigit: true}
}

// Check 返回全部未满足的规则
func (p PasswordPolicy) Check(password string) []string {
	if password == "" {
		return []string{"password is required"}
	}

	var violations []string
	if utf8.RuneCountInString(password) < p.MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		violations = append(violations, fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if p.RequireUpper && !hasUpper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "password must contain a digit")
	}
	return violations
}

func checkName(name string) []string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return []string{"name is required"}
	case utf8.RuneCountInString(name) > maxNameLength:
		return []string{fmt.Sprintf("name must be at most %d characters", maxNameLength)}
	}
	return nil
}

func checkEmail(email string) []string {
	switch {
	case email == "":
		return []string{"email is required"}
	case !isValidEmail(email):
		return []string{"email must be a valid address"}
	}
	return nil
}

func checkRole(raw string, allowed []model.Role) (model.Role, []string) {
	if strings.TrimSpace(raw) == "" {
		return "", []string{"role is required"}
	}
	role, ok := model.ParseRole(raw)
	if ok {
		for _, r := range allowed {
			if r == role {
				return role, nil
			}
		}
	}
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return "", []string{"role must be one of: " + strings.Join(names, ", ")}
}

// validateRegistration 校验注册输入并收集全部违规项
func validateRegistration(in RegisterInput, allowed []model.Role, policy PasswordPolicy) (model.Role, []string) {
	var violations []string
	violations = append(violations, checkName(in.Name)...)
	violations = append(violations, checkEmail(model.NormalizeEmail(in.Email))...)
	violations = append(violations, policy.Check(in.Password)...)
	role, roleViolations := checkRole(in.Role, allowed)
	violations = append(violations, roleViolations...)
	return role, violations
}
