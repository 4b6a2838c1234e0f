// Package controller holds the gin handlers. Handlers bind and validate
// input, call a service and write the response envelope; failures are pushed
// with c.Error for the error middleware to render.
package controller

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/query"
	"github.com/saxenaaman628/election-observer/internal/response"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			field := fe.Namespace()
			if _, rest, ok := strings.Cut(field, "."); ok {
				field = rest
			}
			msgs = append(msgs, fieldMessage(field, fe))
		}
		return strings.Join(msgs, "; ")
	}
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	return err.Error()
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%q must be exactly %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	}
	return fmt.Sprintf("%q failed the %q rule", field, fe.Tag())
}

// Bind decodes the JSON body into dst and reports a 400 on failure.
func Bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperr.BadRequest("Validation error: %s", validationMessage(err)))
		return false
	}
	return true
}

func listParams(c *gin.Context, spec *query.Spec) (query.Params, bool) {
	p, err := query.Parse(c.Request.URL.Query(), spec)
	if err != nil {
		_ = c.Error(err)
		return p, false
	}
	return p, true
}

// writePage answers a list with the requested field projection applied.
func writePage[T any](c *gin.Context, page *query.Page[T], p query.Params, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := query.Project(page, p)
	if err != nil {
		_ = c.Error(apperr.Internal(err, "Failed to build response"))
		return
	}
	response.OK(c, out)
}

type IDsRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1,dive,required"`
}
