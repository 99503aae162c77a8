package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/phone"
)

var (
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
	registerOnce sync.Once
)

// Validators are the custom binding tags used by request models.
func Validators() map[string]validator.Func {
	return map[string]validator.Func{
		"il_mobile": func(fl validator.FieldLevel) bool {
			return phone.IsLocalMobile(fl.Field().String())
		},
		"otp_code": func(fl validator.FieldLevel) bool {
			return otpPattern.MatchString(fl.Field().String())
		},
		"weekday": func(fl validator.FieldLevel) bool {
			_, ok := model.ParseWeekday(fl.Field().String())
			return ok
		},
		"clock": func(fl validator.FieldLevel) bool {
			return model.ValidClock(fl.Field().String())
		},
		"treatment": func(fl validator.FieldLevel) bool {
			return model.TreatmentType(fl.Field().String()).Valid()
		},
	}
}

// RegisterValidators installs the custom tags on gin's validator and reports
// fields by their JSON name. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range Validators() {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}
