package providers

import (
	"spd/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if cv.conf.RateLimit.Enabled {
		// A zero rate never refills the bucket.
		v.StringRule("RateLimit.Rps", "required|min:1")
		v.StringRule("RateLimit.Burst", "required|min:1")
	}
	if !v.Validate() {
		return v.Errors
	}
	return nil
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}
