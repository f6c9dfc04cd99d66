package feed

import (
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

func errExhausted(name string) error {
	return errors.Newf(errors.ErrCodeFeedUnavailable, "feed %s is exhausted", name)
}
