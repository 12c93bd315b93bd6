package api

import (
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// params collects scalar parameters from the query string, a form body or a flat JSON object.
// Later sources override earlier ones.
func params(r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, WrapKind("params", ErrBadRequest, err)
		}
		return r.Form, nil
	}

	vals := r.URL.Query()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, WrapKind("params", ErrBadRequest, err)
	}
	for k, v := range body {
		switch x := v.(type) {
		case nil:
		case string:
			vals.Set(k, x)
		case float64:
			vals.Set(k, strconv.FormatFloat(x, 'f', -1, 64))
		case bool:
			vals.Set(k, strconv.FormatBool(x))
		default:
			return nil, WrapKind("params", ErrBadRequest, fmt.Errorf("%s must be a scalar", k))
		}
	}
	return vals, nil
}

func check(op string, req any) error {
	if err := validate.Struct(req); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func parseFloat(op, name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a number", name))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be finite", name))
	}
	return v, nil
}

func parseInt(op, name, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be an integer", name))
	}
	return v, nil
}

// optionalInt parses s unless it is empty.
func optionalInt(op, name, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseInt(op, name, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
