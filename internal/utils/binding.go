package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationErrorDetail represents the structure of a single validation error.
type ValidationErrorDetail struct {
	Field    string      `json:"field"`
	Message  string      `json:"message"`
	Expected string      `json:"expected"`
	Received interface{} `json:"received"`
}

// BindStrict decodes the request body into obj, rejecting unknown fields,
// then runs struct validation. On failure it writes the error response and
// returns false. Unknown fields are an error by construction; there is no
// field allow-list to maintain.
func BindStrict(c *gin.Context, obj interface{}) bool {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(obj); err != nil {
		detail := decodeErrorDetail(err)
		c.JSON(http.StatusBadRequest, NewResponse(http.StatusBadRequest,
			"Invalid request parameters", []ValidationErrorDetail{detail}))
		return false
	}

	if err := validate.Struct(obj); err != nil {
		var details []ValidationErrorDetail
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errs {
				detail := ValidationErrorDetail{
					Field:    e.Field(),
					Message:  fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", e.Field(), e.Tag()),
					Expected: e.Tag(),
					Received: e.Value(),
				}
				if e.Param() != "" {
					detail.Expected = fmt.Sprintf("%s=%s", e.Tag(), e.Param())
				}
				switch e.Tag() {
				case "required":
					detail.Message = fmt.Sprintf("Field '%s' is required", e.Field())
				case "email":
					detail.Message = fmt.Sprintf("Field '%s' must be a valid email address", e.Field())
				case "min":
					detail.Message = fmt.Sprintf("Field '%s' must be at least %s", e.Field(), e.Param())
				case "max":
					detail.Message = fmt.Sprintf("Field '%s' must be at most %s", e.Field(), e.Param())
				}
				details = append(details, detail)
			}
		} else {
			details = append(details, ValidationErrorDetail{
				Field:    "body",
				Message:  err.Error(),
				Expected: "valid payload",
			})
		}
		c.JSON(http.StatusBadRequest, NewResponse(http.StatusBadRequest,
			"Invalid request parameters", details))
		return false
	}

	return true
}

func decodeErrorDetail(err error) ValidationErrorDetail {
	if jsonErr, ok := err.(*json.UnmarshalTypeError); ok {
		return ValidationErrorDetail{
			Field:    jsonErr.Field,
			Message:  fmt.Sprintf("Field '%s' has invalid type", jsonErr.Field),
			Expected: jsonErr.Type.String(),
			Received: jsonErr.Value,
		}
	}

	if strings.HasPrefix(err.Error(), "json: unknown field") {
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), "\"")
		return ValidationErrorDetail{
			Field:    field,
			Message:  fmt.Sprintf("Unknown field '%s'", field),
			Expected: "no unknown fields",
			Received: field,
		}
	}

	return ValidationErrorDetail{
		Field:    "body",
		Message:  "Malformed JSON or invalid request body",
		Expected: "valid JSON",
		Received: "invalid",
	}
}
