package web

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"unicode/utf8"

	awsevents "github.com/aws/aws-lambda-go/events"
)

// LambdaHandler adapts h to API Gateway HTTP API (payload version 2.0) events
func LambdaHandler(h http.Handler) func(context.Context, awsevents.APIGatewayV2HTTPRequest) (awsevents.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, event awsevents.APIGatewayV2HTTPRequest) (awsevents.APIGatewayV2HTTPResponse, error) {
		r, err := lambdaRequest(ctx, event)
		if err != nil {
			return awsevents.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest}, nil
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return lambdaResponse(rec.Result(), rec.Body.Bytes()), nil
	}
}

func lambdaRequest(ctx context.Context, event awsevents.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		var err error
		if body, err = base64.StdEncoding.DecodeString(event.Body); err != nil {
			return nil, err
		}
	}
	target := event.RawPath
	if target == "" {
		target = "/"
	}
	if event.RawQueryString != "" {
		target += "?" + event.RawQueryString
	}
	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodGet
	}
	r, err := http.NewRequestWithContext(ctx, method, target, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	for key, value := range event.Headers {
		r.Header.Set(key, value)
	}
	if len(event.Cookies) > 0 {
		r.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	if ip := event.RequestContext.HTTP.SourceIP; ip != "" {
		r.RemoteAddr = ip + ":0"
	}
	r.ContentLength = int64(len(body))
	return r, nil
}

func lambdaResponse(res *http.Response, body []byte) awsevents.APIGatewayV2HTTPResponse {
	out := awsevents.APIGatewayV2HTTPResponse{
		StatusCode:        res.StatusCode,
		Headers:           map[string]string{},
		MultiValueHeaders: map[string][]string{},
		Cookies:           res.Header.Values("Set-Cookie"),
	}
	for key, values := range res.Header {
		if key == "Set-Cookie" {
			continue
		}
		if len(values) == 1 {
			out.Headers[key] = values[0]
		} else {
			out.MultiValueHeaders[key] = values
		}
	}
	if utf8.Valid(body) && res.Header.Get("Content-Encoding") == "" {
		out.Body = string(body)
	} else {
		out.Body = base64.StdEncoding.EncodeToString(body)
		out.IsBase64Encoded = true
	}
	return out
}
