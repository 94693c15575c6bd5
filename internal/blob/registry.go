package blob

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// Prefix marks a transient reference handed out by a Registry
	Prefix     = "blob:"
	dataPrefix = "data:"
	localHost  = "blob:local/"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrRevoked    = errors.New("blob reference revoked")
	ErrNotBlob    = errors.New("not a blob reference")
	ErrBadDataURI = errors.New("malformed data uri")
)

type entry struct {
	data        []byte
	contentType string
	revoked     bool
}

// Registry hands out process-local references to in-memory payloads.
// References stay valid until revoked or until the registry is dropped.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Create registers a payload and returns its blob: reference
func (r *Registry) Create(data []byte, contentType string) string {
	ref := localHost + uuid.NewString()
	r.mu.Lock()
	r.entries[ref] = &entry{data: data, contentType: contentType}
	r.mu.Unlock()
	return ref
}

// Fetch dereferences a reference created by this registry
func (r *Registry) Fetch(ref string) ([]byte, string, error) {
	if !strings.HasPrefix(ref, Prefix) {
		return nil, "", ErrNotBlob
	}
	r.mu.RLock()
	e, ok := r.entries[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if e.revoked {
		return nil, "", fmt.Errorf("%w: %s", ErrRevoked, ref)
	}
	return e.data, e.contentType, nil
}

// Revoke invalidates a reference. The payload is released but the reference
// remembers that it once existed.
func (r *Registry) Revoke(ref string) {
	r.mu.Lock()
	if e, ok := r.entries[ref]; ok {
		e.revoked = true
		e.data = nil
	}
	r.mu.Unlock()
}

// RevokeAll invalidates every outstanding reference
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	for _, e := range r.entries {
		e.revoked = true
		e.data = nil
	}
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if !e.revoked {
			n++
		}
	}
	return n
}

// IsTransient reports whether ref only has meaning inside the current process
// and must be resolved before it can be published.
func IsTransient(ref string) bool {
	return strings.HasPrefix(ref, Prefix) || strings.HasPrefix(ref, dataPrefix)
}

func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, dataPrefix)
}

// DecodeDataURI decodes data:[<mediatype>][;base64],<data>
func DecodeDataURI(ref string) ([]byte, string, error) {
	if !IsDataURI(ref) {
		return nil, "", ErrBadDataURI
	}
	header, payload, ok := strings.Cut(ref[len(dataPrefix):], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing comma", ErrBadDataURI)
	}

	params := strings.Split(header, ";")
	contentType := params[0]
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
		return data, contentType, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}
	return []byte(decoded), contentType, nil
}

// EncodeDataURI is the inverse of DecodeDataURI, always base64
func EncodeDataURI(data []byte, contentType string) string {
	return dataPrefix + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
