package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/vendorportal/api/middleware"
	"github.com/angelmondragon/vendorportal/api/responses"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

type backendDoer interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Proxy relays the request to the same path on the backend API, keeping the
// method, query string and body, and authenticating with the session token.
func Proxy(backend backendDoer, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if backend == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "backend api unavailable"))
			return
		}

		body, err := readProxyBody(r, maxBody)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := backend.Do(r.Context(), upstream.Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.Query(),
			Body:        body,
			ContentType: r.Header.Get("Content-Type"),
			Token:       middleware.AccessTokenFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !resp.OK() {
			responses.WriteError(r.Context(), logg, w, upstream.ErrorFromResponse(resp))
			return
		}
		responses.WriteUpstream(w, resp)
	}
}

func readProxyBody(r *http.Request, maxBody int64) ([]byte, error) {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil, nil
	}
	if maxBody <= 0 {
		maxBody = 5 << 20
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if int64(len(body)) > maxBody {
		return nil, pkgerrors.New(pkgerrors.CodeTooLarge, "request body too large")
	}
	return body, nil
}
