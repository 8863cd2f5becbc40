package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/vulntor/forge/pkg/placeholder"
)

var (
	moduleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,62}$`)
	includePattern  = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_./+-]*$`)
	libraryPattern  = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.+-]*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	register := func(tag string, fn func(string) bool) {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}

	register("moduleid", moduleIDPattern.MatchString)
	register("identifier", placeholder.IsIdentifier)
	register("include", includePattern.MatchString)
	register("library", libraryPattern.MatchString)
	register("platform", func(s string) bool { return Platform(s).IsValid() })
	register("paramkind", func(s string) bool { return ParamKind(s).IsValid() })
	register("language", func(s string) bool { return Language(s).IsValid() })
	register("semver", func(s string) bool {
		_, err := semver.StrictNewVersion(s)
		return err == nil
	})

	return v
}

// Validate checks the module's structure and the consistency of its template
// with the declared schema.
func (m *Module) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s: %s", ErrInvalidModule, m.ID, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidModule, m.ID, err)
	}

	declared := make(map[string]string)
	claim := func(name, what string) error {
		if prev, ok := declared[name]; ok {
			return fmt.Errorf("%w: %s: %s %q collides with %s", ErrInvalidModule, m.ID, what, name, prev)
		}
		declared[name] = what
		return nil
	}

	for _, name := range m.Renamed() {
		if placeholder.IsReserved(name) {
			return fmt.Errorf("%w: %s: reserved name %q", ErrInvalidModule, m.ID, name)
		}
		if err := claim(name, "renamed symbol"); err != nil {
			return err
		}
	}
	for _, p := range m.Params {
		if err := claim(p.Name, "parameter"); err != nil {
			return err
		}
	}

	for _, o := range m.Outputs {
		if o.Kind == KindSymbol {
			return fmt.Errorf("%w: %s: output %q: symbol outputs are not supported", ErrInvalidModule, m.ID, o.Name)
		}
		p, ok := m.Param(o.Param)
		if !ok {
			return fmt.Errorf("%w: %s: output %q is backed by undeclared parameter %q", ErrInvalidModule, m.ID, o.Name, o.Param)
		}
		if p.Kind != o.Kind {
			return fmt.Errorf("%w: %s: output %q is %s but parameter %q is %s", ErrInvalidModule, m.ID, o.Name, o.Kind, p.Name, p.Kind)
		}
	}

	for _, tmpl := range []struct{ what, text string }{
		{"source", m.Source},
		{"call", m.CallTemplate()},
	} {
		names, err := placeholder.Names(tmpl.text)
		if err != nil {
			return fmt.Errorf("%w: %s: %s template: %v", ErrInvalidModule, m.ID, tmpl.what, err)
		}
		for _, name := range names {
			if _, ok := declared[name]; !ok {
				return fmt.Errorf("%w: %s: %s template uses undeclared placeholder %q", ErrInvalidModule, m.ID, tmpl.what, name)
			}
		}
	}

	if !strings.Contains(m.Source, "${"+m.EntryPoint+"}") {
		return fmt.Errorf("%w: %s: source does not define entry point placeholder %q", ErrInvalidModule, m.ID, m.EntryPoint)
	}

	return nil
}

// SatisfiesConstraint reports whether the module version satisfies the semver
// constraint. An empty constraint is always satisfied.
func (m *Module) SatisfiesConstraint(constraint string) (bool, error) {
	if strings.TrimSpace(constraint) == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return false, fmt.Errorf("%w: %s: version %q: %v", ErrInvalidModule, m.ID, m.Version, err)
	}
	return c.Check(v), nil
}
