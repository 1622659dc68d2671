package savestore

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-persist/pkg/checksum"
	"github.com/lk2023060901/xdooria-persist/pkg/compress"
	"github.com/lk2023060901/xdooria-persist/pkg/serializer"
)

var sampleDoc = bytes.Repeat([]byte(`{"item_id":"fishing_rod_basic","extension_data":{"Durability":7}},`), 32)

func TestPackUnpack(t *testing.T) {
	for _, ct := range compress.Types() {
		for _, cs := range []checksum.Type{checksum.TypeNone, checksum.TypeCRC32, checksum.TypeCRC32C, checksum.TypeXXHash} {
			t.Run(string(ct)+"/"+string(cs), func(t *testing.T) {
				p, err := NewPacker(ct, cs)
				require.NoError(t, err)

				blob, err := p.Pack(KindPlayer, serializer.ContentTypeJSON, sampleDoc)
				require.NoError(t, err)

				env, doc, err := Unpack(blob)
				require.NoError(t, err)
				assert.Equal(t, sampleDoc, doc)
				assert.Equal(t, KindPlayer, env.Kind)
				assert.Equal(t, ct, env.Compression)
				assert.Equal(t, cs, env.Checksum)
				assert.Equal(t, serializer.ContentTypeJSON, env.ContentType)
				assert.Equal(t, len(sampleDoc), env.RawSize)
			})
		}
	}
}

func TestUnpackChecksumMismatch(t *testing.T) {
	p, err := NewPacker(compress.TypeZstd, checksum.TypeXXHash)
	require.NoError(t, err)
	blob, err := p.Pack(KindWorld, serializer.ContentTypeJSON, sampleDoc)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, serializer.Decode(blob, &env))
	env.Payload[len(env.Payload)/2] ^= 0xFF
	tampered, err := serializer.Encode(&env)
	require.NoError(t, err)

	_, _, err = Unpack(tampered)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestOpenRejects(t *testing.T) {
	_, err := OpenEnvelope([]byte("definitely not msgpack"))
	assert.True(t, errors.Is(err, ErrBadMagic))

	wrongMagic, err := serializer.Encode(&Envelope{Magic: "ABCD", Version: 1})
	require.NoError(t, err)
	_, err = OpenEnvelope(wrongMagic)
	assert.True(t, errors.Is(err, ErrBadMagic))

	future, err := serializer.Encode(&Envelope{Magic: Magic, Version: EnvelopeVersion + 1})
	require.NoError(t, err)
	_, err = OpenEnvelope(future)
	assert.True(t, errors.Is(err, ErrUnsupportedEnvelope))

	unknownCodec, err := serializer.Encode(&Envelope{Magic: Magic, Version: 1, Compression: "brotli", Payload: []byte("x")})
	require.NoError(t, err)
	_, _, err = Unpack(unknownCodec)
	assert.True(t, errors.Is(err, ErrUnsupportedEnvelope))
}

func TestNewPackerInvalid(t *testing.T) {
	_, err := NewPacker("brotli", checksum.TypeXXHash)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = NewPacker(compress.TypeLZ4, "md5")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestRepack(t *testing.T) {
	snappy, err := NewPacker(compress.TypeSnappy, checksum.TypeCRC32C)
	require.NoError(t, err)
	lz4, err := NewPacker(compress.TypeLZ4, checksum.TypeXXHash)
	require.NoError(t, err)

	blob, err := snappy.Pack(KindWorld, serializer.ContentTypeJSON, sampleDoc)
	require.NoError(t, err)
	repacked, err := Repack(blob, lz4)
	require.NoError(t, err)

	env, doc, err := Unpack(repacked)
	require.NoError(t, err)
	assert.Equal(t, compress.TypeLZ4, env.Compression)
	assert.Equal(t, checksum.TypeXXHash, env.Checksum)
	assert.Equal(t, KindWorld, env.Kind)
	assert.Equal(t, sampleDoc, doc)
}
