package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
)

// errorDocument is the linked-data error body every failed request
// returns: type, statusCode, title, detail, instance.
type errorDocument struct {
	Context    any            `json:"@context"`
	Type       string         `json:"type"`
	StatusCode int            `json:"statusCode"`
	Title      string         `json:"title"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	Extra      map[string]any `json:"extra,omitempty"`
}

const ldContext = "https://www.hyprcat.dev/ns/v1"

// writeError renders err as a JSON-LD error document, choosing status
// and headers from its apierr.Kind when present, or InternalError for
// an unrecognized error.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Wrap(apierr.InternalError, "Internal error", "an unexpected error occurred", err)
	}

	doc := errorDocument{
		Context:    ldContext,
		Type:       string(apiErr.Kind),
		StatusCode: apiErr.Status(),
		Title:      apiErr.Title,
		Detail:     apiErr.Detail,
		Instance:   r.URL.Path,
		Extra:      apiErr.Extra,
	}

	if apiErr.Kind == apierr.AuthenticationRequired {
		w.Header().Set("WWW-Authenticate", `DID-Auth realm="hyprcat"`)
	}

	h.writeDocument(w, r, doc.StatusCode, doc)
}

// writeDocument renders doc as the negotiated content type, stamping
// the version and Link headers every response carries.
func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, status int, doc any) {
	contentType := negotiatedContentType(r)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(headerVersion, protocolVersion)
	w.Header().Set("Link", linkHeader())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

func linkHeader() string {
	return `<https://www.hyprcat.dev/catalog>; rel="collection", ` +
		`<https://www.hyprcat.dev/.well-known/service>; rel="service-desc"`
}

func apiErrorFromPanic(rec any) *apierr.Error {
	return apierr.New(apierr.InternalError, "Internal error", "an unexpected error occurred").
		WithExtra(map[string]any{"panic": true, "recoveredAt": time.Now().Format(time.RFC3339)})
}

func authChallengeRequiredError() *apierr.Error {
	return apierr.New(apierr.AuthenticationRequired, "Authentication required", "this route requires a verified identity").
		WithExtra(map[string]any{"challengeEndpoint": "/auth/challenge"})
}

func unknownDIDError(did string) *apierr.Error {
	return apierr.New(apierr.AuthenticationFailed, "Unknown DID", "no public key is on file for this DID; complete /auth/challenge first")
}

func malformedDIDAuthError() *apierr.Error {
	return apierr.New(apierr.InvalidRequest, "Malformed DID-Auth header", `expected "<did>;sig=...;nonce=..."`)
}

func rateLimitedError(resetIn time.Duration) *apierr.Error {
	return apierr.New(apierr.RateLimited, "Rate limit exceeded", "too many requests in the current window").
		WithExtra(map[string]any{"retryAfterSeconds": int(resetIn.Seconds())})
}

func notAcceptableError() *apierr.Error {
	return apierr.New(apierr.NotAcceptable, "Not acceptable", "this route serves application/ld+json or application/json")
}

func methodNotAllowedError(method string) *apierr.Error {
	return apierr.New(apierr.MethodNotAllowed, "Method not allowed", "method "+method+" is not supported on this route")
}

func invalidJSONBodyError() *apierr.Error {
	return apierr.New(apierr.InvalidRequest, "Invalid JSON body", "request body is not valid JSON")
}
