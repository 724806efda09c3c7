package providers

import (
	"github.com/gookit/validate"

	"iotdash/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate checks every config section against its struct tags. The first
// violation aborts startup.
func (cv *CnfValidator) Validate() error {
	sections := []any{
		&cv.conf.WebServer,
		&cv.conf.Adafruit,
		&cv.conf.Monitor,
		&cv.conf.Logger,
	}
	for _, section := range sections {
		v := validate.Struct(section)
		if !v.Validate() {
			return v.Errors.OneError()
		}
	}
	return nil
}
