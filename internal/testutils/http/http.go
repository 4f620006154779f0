package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
)

type RequestOption func(req *http.Request) *http.Request

func WithContext(ctx context.Context) RequestOption {
	return func(req *http.Request) *http.Request {
		return req.WithContext(ctx)
	}
}

func WithHeader(key string, value string, values ...string) RequestOption {
	return func(req *http.Request) *http.Request {
		req.Header.Add(key, value)
		for _, v := range values {
			req.Header.Add(key, v)
		}
		return req
	}
}

// = WithHeader("Content-Type", ctyp)
func ContentType(ctyp string) RequestOption {
	return WithHeader("Content-Type", ctyp)
}

// = WithHeader("Authorization", "Bearer "+token)
func Bearer(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

func newRequest(method string, target string, data io.Reader, reqopts ...RequestOption) *http.Request {
	req := httptest.NewRequest(method, target, data)
	for _, opt := range reqopts {
		req = opt(req)
	}
	return req
}

func Get(e *echo.Echo, target string, reqopts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	resp := httptest.NewRecorder()
	return e.NewContext(newRequest(http.MethodGet, target, nil, reqopts...), resp), resp
}

func Post(e *echo.Echo, target string, data io.Reader, reqopts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	resp := httptest.NewRecorder()
	return e.NewContext(newRequest(http.MethodPost, target, data, reqopts...), resp), resp
}

func Put(e *echo.Echo, target string, data io.Reader, reqopts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	resp := httptest.NewRecorder()
	return e.NewContext(newRequest(http.MethodPut, target, data, reqopts...), resp), resp
}

func Delete(e *echo.Echo, target string, reqopts ...RequestOption) (echo.Context, *httptest.ResponseRecorder) {
	resp := httptest.NewRecorder()
	return e.NewContext(newRequest(http.MethodDelete, target, nil, reqopts...), resp), resp
}

// Serve sends a request through routes and middlewares of e.
func Serve(e *echo.Echo, method string, target string, data io.Reader, reqopts ...RequestOption) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	e.ServeHTTP(resp, newRequest(method, target, data, reqopts...))
	return resp
}

// Part is a part of a multipart/form-data body.
type Part struct {
	// Filename is set for file parts.
	Filename string
	Content  []byte
}

// Multipart encodes parts as multipart/form-data.
//
// # Returns
//
// - io.Reader: the body
//
// - RequestOption: Content-Type header with the boundary
func Multipart(parts map[string]Part) (io.Reader, RequestOption) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	for name, p := range parts {
		var pw io.Writer
		var err error
		if p.Filename != "" {
			pw, err = w.CreateFormFile(name, p.Filename)
		} else {
			pw, err = w.CreateFormField(name)
		}
		if err != nil {
			panic(err)
		}
		if _, err := pw.Write(p.Content); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf, ContentType(w.FormDataContentType())
}
