// Package loader fetches an OpenAPI document from a local path or an
// http(s) URL and decodes it into a generic mapping.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ubermorgenland/openapi-mcp-gen/pkg/errors"
	"github.com/ubermorgenland/openapi-mcp-gen/pkg/logging"
)

// DownloadTimeout bounds a single spec download.
const DownloadTimeout = 30 * time.Second

var httpClient = &http.Client{Timeout: DownloadTimeout}

// IsURL reports whether s is an absolute http or https URL with a host.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches the spec at rawURL and returns the response body.
func Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.WrapWithContext(ctx, err, apperrors.TypeInvalidURL, "invalid spec URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, apperrors.NewWithContext(ctx, apperrors.TypeInvalidURL, "spec URL must include scheme and host", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperrors.NewWithContext(ctx, apperrors.TypeInvalidURL, "unsupported URL scheme "+u.Scheme, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.WrapWithContext(ctx, err, apperrors.TypeInvalidURL, "failed to create request")
	}

	logging.For("loader").Debug("downloading spec", "url", rawURL)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperrors.WrapWithContext(ctx, err, apperrors.TypeDownload, "failed to fetch spec from URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewWithContext(ctx, apperrors.TypeDownload,
			fmt.Sprintf("HTTP %d when fetching spec", resp.StatusCode), rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.WrapWithContext(ctx, err, apperrors.TypeDownload, "failed to read spec response")
	}
	if !utf8.Valid(body) {
		return nil, apperrors.NewWithContext(ctx, apperrors.TypeDownload, "spec response is not valid UTF-8", rawURL)
	}
	return body, nil
}

// LoadFile reads the spec at path.
func LoadFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.TypeNotFound, "spec file not found", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TypeInternal, "failed to read spec file")
	}
	return content, nil
}

// ParseContent decodes content as YAML, falling back to JSON. Empty content
// yields a nil document. When both decoders fail the returned error wraps the
// JSON decoder's error.
//
// Mappings with non-string keys, such as numeric response codes, come back
// with their keys stringified so the result can be re-encoded as JSON.
func ParseContent(content []byte) (any, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}

	var doc any
	yamlErr := yaml.Unmarshal(content, &doc)
	if yamlErr == nil {
		return normalize(doc), nil
	}

	doc = nil
	if err := json.Unmarshal(content, &doc); err != nil {
		parseErr := apperrors.Wrap(err, apperrors.TypeParse, "content is neither valid YAML nor JSON")
		parseErr.Details = "yaml: " + yamlErr.Error()
		return nil, parseErr
	}
	return doc, nil
}

// LoadFromPathOrURL downloads or reads pathOrURL and parses the result.
func LoadFromPathOrURL(ctx context.Context, pathOrURL string) (any, error) {
	var (
		content []byte
		err     error
	)
	if IsURL(pathOrURL) {
		content, err = Download(ctx, pathOrURL)
	} else {
		content, err = LoadFile(pathOrURL)
	}
	if err != nil {
		return nil, err
	}

	logging.For("loader").Debug("loaded spec", "source", pathOrURL, "bytes", len(content))
	return ParseContent(content)
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[cast.ToString(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
