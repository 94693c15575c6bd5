package blob

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndFetch(t *testing.T) {
	r := NewRegistry()
	ref := r.Create([]byte("png-bytes"), "image/png")

	assert.True(t, IsTransient(ref))
	data, ct, err := r.Fetch(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, 1, r.Len())
}

func TestFetchRevokedAndUnknown(t *testing.T) {
	r := NewRegistry()
	ref := r.Create([]byte("x"), "image/png")
	r.Revoke(ref)

	_, _, err := r.Fetch(ref)
	assert.True(t, errors.Is(err, ErrRevoked))

	_, _, err = r.Fetch("blob:local/unknown")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = r.Fetch("https://example.com/a.png")
	assert.True(t, errors.Is(err, ErrNotBlob))
	assert.Equal(t, 0, r.Len())
}

func TestRevokeAll(t *testing.T) {
	r := NewRegistry()
	a := r.Create([]byte("a"), "text/plain")
	r.Create([]byte("b"), "text/plain")
	r.RevokeAll()

	_, _, err := r.Fetch(a)
	assert.ErrorIs(t, err, ErrRevoked)
	assert.Equal(t, 0, r.Len())
}

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		data   string
		ct     string
		hasErr bool
	}{
		{name: "base64", in: "data:image/png;base64,aGVsbG8=", data: "hello", ct: "image/png"},
		{name: "unpadded base64", in: "data:image/gif;base64,aGVsbG8", data: "hello", ct: "image/gif"},
		{name: "percent encoded", in: "data:,hello%20world", data: "hello world", ct: "text/plain"},
		{name: "no comma", in: "data:image/png;base64", hasErr: true},
		{name: "bad base64", in: "data:image/png;base64,@@@", hasErr: true},
		{name: "not a data uri", in: "/uploads/a.png", hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ct, err := DecodeDataURI(tt.in)
			if tt.hasErr {
				assert.ErrorIs(t, err, ErrBadDataURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(data))
			assert.Equal(t, tt.ct, ct)
		})
	}
}

func TestEncodeDataURIRoundTrip(t *testing.T) {
	uri := EncodeDataURI([]byte{0x89, 'P', 'N', 'G'}, "image/png")
	data, ct, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
	assert.Equal(t, "image/png", ct)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient("blob:local/abc"))
	assert.True(t, IsTransient("data:image/png;base64,AA=="))
	assert.False(t, IsTransient("/uploads/cover-1a2b3c4d.png"))
	assert.False(t, IsTransient("https://cdn.example.com/x.jpg"))
}
