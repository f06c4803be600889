package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"evergreen/internal/core"
)

// ErrNoFile is returned by readUpload when the field carries no file.
var ErrNoFile = errors.New("no file uploaded")

// maxUploadBody bounds a whole multipart request; single files are checked
// against their own policy afterwards.
const maxUploadBody = 12 << 20

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// bindForm copies form values into the string and bool fields of the struct
// dst points to, matching on the `form` tag. Values are sanitized unless the
// tag carries ",raw" (passwords).
func bindForm(form url.Values, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bindForm: want pointer to struct, got %T", dst)
	}
	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("form")
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}
		name, opt, _ := strings.Cut(tag, ",")
		raw := form.Get(name)
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			if opt != "raw" {
				raw = sanitizeInput(raw)
			}
			field.SetString(raw)
		case reflect.Bool:
			switch strings.ToLower(strings.TrimSpace(raw)) {
			case "on", "true", "1", "yes":
				field.SetBool(true)
			default:
				field.SetBool(false)
			}
		}
	}
	return nil
}

// parseForm parses url-encoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadBody)
	}
	return r.ParseForm()
}

// readUpload reads the file posted under field. Reading stops one byte past
// limit so oversize files are still reported as such without being buffered
// whole.
func readUpload(r *http.Request, field string, limit int64) (core.Upload, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return core.Upload{}, ErrNoFile
		}
		return core.Upload{}, fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return core.Upload{}, fmt.Errorf("read %s: %w", field, err)
	}
	return core.Upload{
		FileName:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// limitBody caps the request body before multipart parsing.
func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
