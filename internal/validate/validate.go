// Package validate checks decoded request payloads against struct tags and
// renders failures as per-field English messages keyed by JSON name.
package validate

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var courseCodeRe = regexp.MustCompile(`^[A-Za-z]{2,10}-?[0-9]{2,5}[A-Za-z]?$`)

// Errors maps JSON field names to messages.
type Errors struct {
	Fields map[string]string
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator is safe for concurrent use.
type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

type customTag struct {
	tag     string
	message string
	fn      validator.Func
}

var customTags = []customTag{
	{"role", "{0} must be one of student, lecturer, admin", oneOf("student", "lecturer", "admin")},
	{"enrollment_status", "{0} must be one of active, completed, dropped, withdrawn", oneOf("active", "completed", "dropped", "withdrawn")},
	{"course_code", "{0} must look like CS101", func(fl validator.FieldLevel) bool {
		return courseCodeRe.MatchString(fl.Field().String())
	}},
	{"notblank", "{0} must not be blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}},
}

// New builds a Validator with English translations and the custom tags.
func New() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}
	for _, ct := range customTags {
		ct := ct
		if err := v.RegisterValidation(ct.tag, ct.fn); err != nil {
			panic(err)
		}
		err := v.RegisterTranslation(ct.tag, trans,
			func(t ut.Translator) error { return t.Add(ct.tag, ct.message, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(ct.tag, fe.Field())
				return msg
			})
		if err != nil {
			panic(err)
		}
	}
	return &Validator{v: v, trans: trans}
}

// Struct validates s. Constraint failures come back as *Errors; any other
// error (for example a non-struct argument) is returned unchanged.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &Errors{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = fe.Translate(v.trans)
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		got := fl.Field().String()
		if got == "" {
			return true
		}
		for _, v := range values {
			if got == v {
				return true
			}
		}
		return false
	}
}
