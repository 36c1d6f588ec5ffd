// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides easy and fast in-process access to a REST api

Instead of marshalling HTTP, the client talks directly to the mux router. The client
is the tool of choice if one request handler needs to call other handlers to fulfill
its task. It is also perfectly suited for unit tests.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/vitrine/core/access"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	auth       *access.Authorization
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithAuthorization() adds an authorization to the request context.
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := map[string]string{key: value}
	for k, v := range c.defaultHeaders {
		if k != key {
			headers[k] = v
		}
	}
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which sends token as bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithAdminAuthorization returns a new client with admin authorizations
// (this works only directly against the mux router, for a normal client
//
//	use WithToken()))
func (c Client) WithAdminAuthorization() Client {
	return c.WithRole(access.RoleAdmin)
}

// WithRole returns a new client with role authorization
// (this works only directly against the mux router, for a normal client
//
//	use WithToken()))
func (c Client) WithRole(role string) Client {
	c.auth = &access.Authorization{
		Identity: "test-" + role,
		Roles:    []string{role},
	}
	return c
}

// WithAuthorization returns a new client with specific authorizations
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithAuthorization(auth *access.Authorization) Client {
	c.auth = auth
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context of the client
func (c Client) Context() context.Context {
	ctx := c.ctx
	if c.ctx == nil {
		ctx = context.Background()
	}
	if c.auth != nil && c.router != nil {
		ctx = c.auth.ContextWithAuthorization(ctx)
	}
	return ctx
}

// StatusError is returned when the handler answered with an unexpected status code
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("handler returned wrong status code %d. Error: %s", e.Status, e.Body)
}

// do executes the request and returns status, header and body. The status
// is checked against expected; the body is unmarshalled into result if result
// is not nil. A *[]byte result receives the raw body.
func (c Client) do(r *http.Request, result interface{}, expected ...int) (int, http.Header, error) {
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	var res *http.Response
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res = rec.Result()
		resBody = rec.Body.Bytes()
	} else {
		var err error
		res, err = c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, nil, err
		}
		defer res.Body.Close()
		resBody, _ = io.ReadAll(res.Body)
	}
	status := res.StatusCode

	ok := false
	for _, e := range expected {
		ok = ok || status == e
	}
	if !ok {
		return status, res.Header, &StatusError{Status: status, Body: strings.TrimSpace(string(resBody))}
	}
	if status == http.StatusNoContent || len(resBody) == 0 || result == nil {
		return status, res.Header, nil
	}
	if raw, isRaw := result.(*[]byte); isRaw {
		*raw = resBody
		return status, res.Header, nil
	}
	return status, res.Header, json.Unmarshal(resBody, result)
}

func (c Client) newJSONRequest(method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			if j, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("%s to %s: %w", method, path, err)
			}
		}
		reader = bytes.NewReader(j)
	}
	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r, nil
}

// RawGet makes a GET request and expects http.StatusOK or http.StatusNoContent
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, _, err := c.RawGetWithHeader(path, nil, result)
	return status, err
}

// RawGetWithHeader makes a GET request with additional headers and also returns the response header
func (c Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	r, err := c.newJSONRequest(http.MethodGet, path, nil)
	if err != nil {
		return http.StatusBadRequest, nil, err
	}
	for key, value := range header {
		r.Header.Add(key, value)
	}
	return c.do(r, result, http.StatusOK, http.StatusNoContent)
}

// RawPost makes a POST request and expects http.StatusOK or http.StatusCreated
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.RawPostWithHeader(path, nil, body, result)
}

// RawPostWithHeader makes a POST request with additional headers
func (c Client) RawPostWithHeader(path string, headers map[string]string, body interface{}, result interface{}) (int, error) {
	r, err := c.newJSONRequest(http.MethodPost, path, body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	for key, value := range headers {
		r.Header.Add(key, value)
	}
	status, _, err := c.do(r, result, http.StatusOK, http.StatusCreated, http.StatusNoContent)
	return status, err
}

// RawPut makes a PUT request and expects http.StatusOK
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	r, err := c.newJSONRequest(http.MethodPut, path, body)
	if err != nil {
		return http.StatusBadRequest, err
	}
	status, _, err := c.do(r, result, http.StatusOK)
	return status, err
}

// RawDelete makes a DELETE request and expects http.StatusNoContent
func (c Client) RawDelete(path string) (int, error) {
	r, err := c.newJSONRequest(http.MethodDelete, path, nil)
	if err != nil {
		return http.StatusBadRequest, err
	}
	status, _, err := c.do(r, nil, http.StatusNoContent)
	return status, err
}

// File is a file for a multipart upload
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// PostMultipart posts files and plain form values as multipart/form-data and
// expects http.StatusOK or http.StatusCreated
func (c Client) PostMultipart(path string, values map[string]string, files []File, result interface{}) (int, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for key, value := range values {
		if err := w.WriteField(key, value); err != nil {
			return http.StatusBadRequest, err
		}
	}
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, file.Field, file.Name))
		header.Set("Content-Type", file.ContentType)
		fw, err := w.CreatePart(header)
		if err != nil {
			return http.StatusBadRequest, err
		}
		if _, err = fw.Write(file.Data); err != nil {
			return http.StatusBadRequest, err
		}
	}
	w.Close()

	r, err := http.NewRequestWithContext(c.Context(), http.MethodPost, c.url+path, &b)
	if err != nil {
		return http.StatusBadRequest, err
	}
	r.Header.Set("Content-Type", w.FormDataContentType())
	status, _, err := c.do(r, result, http.StatusOK, http.StatusCreated)
	return status, err
}
