package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Param is a single query parameter
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query parameters. Encode keeps insertion
// order, so the string that is signed is the string that is sent.
type Params []Param

// Add appends a parameter
func (p *Params) Add(key, value string) {
	*p = append(*p, Param{Key: key, Value: value})
}

// AddIfSet appends a parameter only when value is non-empty
func (p *Params) AddIfSet(key, value string) {
	if value != "" {
		p.Add(key, value)
	}
}

// Encode renders the parameters as a URL query string without the leading "?"
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

// Request describes one logical API call before signing
type Request struct {
	Method string
	Path   string
	Query  Params
	Body   interface{}
}

// SignedRequest is a fully resolved outbound request. PathAndQuery and
// Timestamp are exactly the values folded into Signature.
type SignedRequest struct {
	Method       string
	URL          string
	PathAndQuery string
	Body         []byte
	Timestamp    int64
	Signature    string
	Header       http.Header
}

// Builder turns Request values into SignedRequest values. It performs no I/O.
type Builder struct {
	base   *url.URL
	apiKey string
	signer *Signer
	now    func() time.Time
}

// NewBuilder creates a builder for baseURL. Any path on baseURL is kept as a
// prefix of every request path.
func NewBuilder(baseURL, apiKey string, signer *Signer) (*Builder, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", baseURL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	if apiKey == "" {
		return nil, ErrEmptyKey
	}
	if signer == nil {
		return nil, &SigningError{Reason: "signer is nil"}
	}
	return &Builder{
		base:   base,
		apiKey: apiKey,
		signer: signer,
		now:    time.Now,
	}, nil
}

// Build resolves the URL, serializes the body, samples the clock once and
// signs the request.
func (b *Builder) Build(req Request) (*SignedRequest, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return nil, errors.Wrap(ErrUnsupportedMethod, req.Method)
	}

	path := strings.TrimSuffix(b.base.Path, "/") + "/" + strings.TrimPrefix(req.Path, "/")
	pathAndQuery := path
	if query := req.Query.Encode(); query != "" {
		pathAndQuery += "?" + query
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
	}

	timestamp := GenerateTimestamp(b.now())
	signature := b.signer.Sign(req.Method, pathAndQuery, string(body), timestamp)

	header := make(http.Header)
	header.Set(HeaderContentType, "application/json")
	header.Set(HeaderKey, b.apiKey)
	header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	header.Set(HeaderSign, signature)

	return &SignedRequest{
		Method:       req.Method,
		URL:          b.base.Scheme + "://" + b.base.Host + pathAndQuery,
		PathAndQuery: pathAndQuery,
		Body:         body,
		Timestamp:    timestamp,
		Signature:    signature,
		Header:       header,
	}, nil
}
