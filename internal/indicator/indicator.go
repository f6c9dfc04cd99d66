// Package indicator holds the reference kernels used by graphs: moving
// averages, oscillators, volatility bands and simple arithmetic.
//
// Every kernel has a typed params struct and a constructor that validates
// it. Kernels only compute; lifecycle bookkeeping lives in node.Node.
package indicator

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OutputValue is the output name of single-output kernels.
const OutputValue = "value"

// Factory builds a kernel from loosely typed parameters, for example the
// params block of a YAML graph definition.
type Factory func(params map[string]any) (node.Kernel, error)

// decodeParams copies a params map into a typed params struct and validates it.
func decodeParams(params map[string]any, out any) error {
	if len(params) > 0 {
		raw, err := yaml.Marshal(params)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode params", err)
		}

		if err := yaml.Unmarshal(raw, out); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to decode params", err)
		}
	}

	return validateParams(out)
}

func validateParams(params any) error {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPeriod, "invalid indicator params", err)
	}

	return nil
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}

	return total / float64(len(values))
}

func stddev(values []float64, mid float64) float64 {
	total := 0.0
	for _, v := range values {
		d := v - mid
		total += d * d
	}

	return math.Sqrt(total / float64(len(values)))
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}
