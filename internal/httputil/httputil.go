package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies. Trigger bodies are a single flag.
const maxBodyBytes = 64 << 10

// Parse fills v from the request:
// - path parameters via `path:"name"` (chi.URLParam)
// - query parameters via `form:"name"`
// - the JSON body, when there is one
//
// A query value that does not fit its field is an error, not a silent zero.
func Parse(r *http.Request, v any) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("httputil: Parse needs a struct pointer, got %T", v)
	}
	val = val.Elem()
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		sf := typ.Field(i)

		if tag := sf.Tag.Get("path"); tag != "" {
			if raw := chi.URLParam(r, tag); raw != "" {
				if err := setFieldValue(field, raw); err != nil {
					return fmt.Errorf("invalid %s: %w", tag, err)
				}
			}
		}
		if tag := sf.Tag.Get("form"); tag != "" {
			if raw := r.URL.Query().Get(tag); raw != "" {
				if err := setFieldValue(field, raw); err != nil {
					return fmt.Errorf("invalid %s: %w", tag, err)
				}
			}
		}
	}

	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// setFieldValue converts raw into the field's kind. Pointer fields are
// allocated so a present-but-false flag differs from a missing one.
func setFieldValue(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// PathVar returns a path variable from the request (chi.URLParam wrapper)
func PathVar(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// OkJSON writes a JSON response with 200 OK status
func OkJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every failed request. The toggle page
// shows Error as-is.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error writes err as a 400.
func Error(w http.ResponseWriter, err error) {
	ErrorWithCode(w, http.StatusBadRequest, err.Error())
}

// ErrorWithCode writes an error response with a specific status code
func ErrorWithCode(w http.ResponseWriter, code int, message string) {
	if message == "" {
		message = strings.ToLower(http.StatusText(code))
	}
	WriteJSON(w, code, ErrorResponse{Error: message})
}

func NotFound(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusNotFound, message)
}

// Conflict is used when the automation is already running.
func Conflict(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusConflict, message)
}

func InternalError(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusInternalServerError, message)
}
