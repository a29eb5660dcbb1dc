package handler

import (
    "errors"
    "reflect"
    "strconv"
    "strings"
    "unicode"

    "github.com/go-playground/validator/v10"
)

// FieldError describes one invalid request field.
type FieldError struct {
    Field   string `json:"field"`
    Message string `json:"message"`
}

// ValidationError collects every invalid field of a request.
type ValidationError struct {
    Fields []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
    parts := make([]string, 0, len(e.Fields))
    for _, f := range e.Fields {
        parts = append(parts, f.Field+": "+f.Message)
    }
    return "validation failed: " + strings.Join(parts, "; ")
}

// RequestValidator is the echo.Validator for request DTOs. Besides the
// stock tags it knows:
//
//  maxbytes=N  string length in bytes; bcrypt ignores input past 72 bytes
//  strongpw    at least one uppercase letter and one digit
type RequestValidator struct {
    v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    // report fields by their JSON names
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
        if name == "-" {
            return ""
        }
        return name
    })
    _ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
        n, err := strconv.Atoi(fl.Param())
        return err == nil && len(fl.Field().String()) <= n
    })
    _ = v.RegisterValidation("strongpw", func(fl validator.FieldLevel) bool {
        var upper, digit bool
        for _, r := range fl.Field().String() {
            upper = upper || unicode.IsUpper(r)
            digit = digit || unicode.IsDigit(r)
        }
        return upper && digit
    })
    return &RequestValidator{v: v}
}

// Validate implements echo.Validator. Failures come back as
// *ValidationError.
func (rv *RequestValidator) Validate(i any) error {
    err := rv.v.Struct(i)
    if err == nil {
        return nil
    }
    var ves validator.ValidationErrors
    if !errors.As(err, &ves) {
        return err
    }
    out := &ValidationError{Fields: make([]FieldError, 0, len(ves))}
    for _, fe := range ves {
        out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
    }
    return out
}

func message(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "is required"
    case "email":
        return "must be a valid email"
    case "min":
        return "must be at least " + fe.Param() + " characters"
    case "max":
        return "must be at most " + fe.Param() + " characters"
    case "maxbytes":
        return "must be at most " + fe.Param() + " bytes long"
    case "strongpw":
        return "must contain at least one uppercase letter and one number"
    case "oneof":
        return "must be one of [" + strings.ReplaceAll(fe.Param(), " ", ", ") + "]"
    }
    return "is invalid"
}
