package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var strict = validator.New(validator.WithRequiredStructEnabled())

// ValidateStrict applies the schema-based validation layer used at trust
// boundaries such as import. Unlike Parse it rejects empty patterns and
// unknown kinds outright instead of silently dropping them, and reports
// every failing constraint with its field.
func ValidateStrict(rules []Rule) error {
	var msgs []string
	for i, r := range rules {
		if err := strict.Struct(r); err != nil {
			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return err
			}
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("rule %d: field %s fails constraint %q", i, fe.Field(), fe.Tag()))
			}
			continue
		}
		if r.Kind == KindRegexp {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				msgs = append(msgs, fmt.Sprintf("rule %d: field Pattern is not a valid regular expression: %v", i, err))
			}
		}
	}
	if len(msgs) > 0 {
		return fmt.Errorf("invalid domain rules: %s", strings.Join(msgs, "; "))
	}
	return nil
}
