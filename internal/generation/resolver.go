package generation

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

const defaultOutputContentType = "image/png"

type OutputKind int

const (
	OutputURL OutputKind = iota + 1
	OutputBytes
)

// Resolved is a provider response reduced to either a URL or raw bytes.
type Resolved struct {
	Kind        OutputKind
	URL         string
	Data        []byte
	ContentType string
}

// URLer is implemented by wrapper objects that point at a hosted file.
type URLer interface {
	URL() string
}

// Blob is implemented by outputs that hold the image in memory.
type Blob interface {
	Bytes() ([]byte, error)
}

// ContentTyper optionally accompanies a Blob or a stream.
type ContentTyper interface {
	ContentType() string
}

type outputShape int

const (
	shapeEmpty outputShape = iota
	shapeText
	shapeList
	shapeRecord
	shapeObject
	shapeScalar
)

func classify(output any) outputShape {
	if output == nil {
		return shapeEmpty
	}
	if s, ok := output.(string); ok {
		if s == "" {
			return shapeEmpty
		}
		return shapeText
	}
	if _, ok := output.([]byte); ok {
		return shapeScalar
	}

	rv := reflect.ValueOf(output)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return shapeEmpty
		}
	}

	switch output.(type) {
	case *http.Response, URLer, fmt.Stringer, Blob, io.Reader:
		return shapeObject
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return shapeList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return shapeRecord
		}
	case reflect.Pointer, reflect.Struct:
		return shapeObject
	}
	return shapeScalar
}

// ResolveOutput classifies a provider response. It returns nil when nothing
// usable is found. Candidates are tried in order and the first hit wins.
// Stream outputs are drained and closed.
func ResolveOutput(output any) (*Resolved, error) {
	switch classify(output) {
	case shapeText:
		return resolveText(output.(string)), nil
	case shapeList:
		return resolveList(reflect.ValueOf(output))
	case shapeRecord:
		return resolveRecord(reflect.ValueOf(output)), nil
	case shapeObject:
		return resolveObject(output)
	default:
		return nil, nil
	}
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http")
}

func resolveText(s string) *Resolved {
	if !isHTTP(s) {
		return nil
	}
	return &Resolved{Kind: OutputURL, URL: s}
}

func resolveList(rv reflect.Value) (*Resolved, error) {
	for i := 0; i < rv.Len(); i++ {
		resolved, err := ResolveOutput(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}
	return nil, nil
}

func resolveRecord(rv reflect.Value) *Resolved {
	v := rv.MapIndex(reflect.ValueOf("url").Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil
	}
	if s, ok := v.Interface().(string); ok {
		return resolveText(s)
	}
	return nil
}

func resolveObject(output any) (*Resolved, error) {
	if u, ok := output.(URLer); ok {
		if resolved := resolveText(u.URL()); resolved != nil {
			return resolved, nil
		}
	}
	if u, ok := urlField(output); ok {
		if resolved := resolveText(u); resolved != nil {
			return resolved, nil
		}
	}
	if s, ok := output.(fmt.Stringer); ok {
		if resolved := resolveText(s.String()); resolved != nil {
			return resolved, nil
		}
	}
	if b, ok := output.(Blob); ok {
		data, err := b.Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to read output blob: %w", err)
		}
		return &Resolved{Kind: OutputBytes, Data: data, ContentType: contentTypeOf(output, "")}, nil
	}
	if resp, ok := output.(*http.Response); ok {
		if resp.Body == nil {
			return nil, nil
		}
		return drain(resp.Body, resp.Header.Get("Content-Type"))
	}
	if r, ok := output.(io.Reader); ok {
		return drain(r, contentTypeOf(output, ""))
	}
	return nil, nil
}

// urlField reads an exported string field named URL from a struct or a
// pointer to one.
func urlField(output any) (string, bool) {
	rv := reflect.ValueOf(output)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", false
	}
	f, ok := rv.Type().FieldByName("URL")
	if !ok || !f.IsExported() || f.Type.Kind() != reflect.String {
		return "", false
	}
	v, err := rv.FieldByIndexErr(f.Index)
	if err != nil {
		return "", false
	}
	return v.String(), true
}

func drain(r io.Reader, contentType string) (*Resolved, error) {
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read output stream: %w", err)
	}
	if contentType == "" {
		contentType = defaultOutputContentType
	}
	return &Resolved{Kind: OutputBytes, Data: data, ContentType: contentType}, nil
}

func contentTypeOf(v any, fallback string) string {
	if ct, ok := v.(ContentTyper); ok && ct.ContentType() != "" {
		return ct.ContentType()
	}
	if fallback != "" {
		return fallback
	}
	return defaultOutputContentType
}
