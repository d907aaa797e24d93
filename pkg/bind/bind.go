// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/shashiranjanraj/shopfront/pkg/validate"
)

const defaultMaxBody = 4 << 20

func maxBodyBytes() int64 {
	n := config.Int("MAX_BODY_BYTES", defaultMaxBody)
	if n <= 0 {
		return defaultMaxBody
	}
	return int64(n)
}

// JSON decodes r.Body into dest and validates it. An empty body decodes as
// {} so that missing fields surface as validation errors rather than a
// parse error. Failures are *apperr.Error values ready to render.
func JSON(r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.New(http.StatusRequestEntityTooLarge, "request body too large (max %d bytes)", maxErr.Limit)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation(map[string]string{
				typeErr.Field: fmt.Sprintf("The %s field must be a %s.", typeErr.Field, typeErr.Type.String()),
			})
		}
		return apperr.BadRequest("invalid JSON body")
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return apperr.Validation(errs)
	}
	return nil
}

// File reads a single multipart file field, capped at the body limit.
func File(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())
	if err := r.ParseMultipartForm(maxBodyBytes()); err != nil {
		return nil, nil, apperr.BadRequest("expected a multipart form with a %q file", field)
	}
	f, h, err := r.FormFile(field)
	if err != nil {
		return nil, nil, apperr.Validation(map[string]string{field: fmt.Sprintf("The %s field is required.", field)})
	}
	return f, h, nil
}
