package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// Check reports whether the running engine satisfies the version constraint
// a run configuration declares.
func Check(constraint string) error {
	return CheckCompatibility(Version, constraint)
}

// CheckCompatibility reports whether engineVersion satisfies constraint.
//
// An empty constraint accepts any engine. A bare version such as "0.4.1"
// means "~0.4.1": same major and minor, any later patch. Development builds
// ("main") skip the check.
//
//   - engine 0.4.3, constraint "0.4.0"      -> OK
//   - engine 0.5.0, constraint "0.4.0"      -> ErrCodeVersionMismatch
//   - engine 1.2.0, constraint ">= 1.0, <2" -> OK
//   - engine main,  constraint "9.9"        -> OK
func CheckCompatibility(engineVersion, constraint string) error {
	engineVersion = strings.TrimPrefix(strings.TrimSpace(engineVersion), "v")
	constraint = strings.TrimSpace(constraint)

	if engineVersion == "main" || constraint == "" {
		return nil
	}

	engine, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version %q", engineVersion)
	}

	if _, err := semver.NewVersion(strings.TrimPrefix(constraint, "v")); err == nil {
		constraint = "~" + strings.TrimPrefix(constraint, "v")
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid version constraint %q", constraint)
	}

	if ok, reasons := c.Validate(engine); !ok {
		msgs := make([]string, 0, len(reasons))
		for _, r := range reasons {
			msgs = append(msgs, r.Error())
		}

		return errors.Newf(errors.ErrCodeVersionMismatch, "engine %s does not satisfy %q: %s",
			engine, constraint, strings.Join(msgs, "; "))
	}

	return nil
}
