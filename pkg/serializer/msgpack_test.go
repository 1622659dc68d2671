package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelopeLike struct {
	Kind    string `codec:"kind" json:"kind"`
	Version int    `codec:"version" json:"version"`
	Payload []byte `codec:"payload" json:"payload"`
}

func TestMsgpackEncodeDecode(t *testing.T) {
	original := &envelopeLike{Kind: "player", Version: 2, Payload: []byte(`{"item_id":"fishing_rod_basic"}`)}

	data, err := Encode(original)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded envelopeLike
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, *original, decoded)
}

func TestMsgpackMap(t *testing.T) {
	data, err := Encode(map[string]interface{}{"room": "kitchen"})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, "kitchen", decoded["room"])
}

func TestSerializers(t *testing.T) {
	original := envelopeLike{Kind: "world", Version: 1, Payload: []byte("abc")}

	for _, ct := range []string{ContentTypeJSON, ContentTypeMsgpack} {
		t.Run(ct, func(t *testing.T) {
			s, err := ByContentType(ct)
			require.NoError(t, err)
			assert.Equal(t, ct, s.ContentType())

			data, err := s.Serialize(original)
			require.NoError(t, err)

			var decoded envelopeLike
			require.NoError(t, s.Deserialize(data, &decoded))
			assert.Equal(t, original, decoded)
		})
	}

	_, err := ByContentType("application/xml")
	assert.Error(t, err)
}

func TestJSONIndent(t *testing.T) {
	s := &JSON{Indent: "  "}
	data, err := s.Serialize(map[string]int{"clovers": 100})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"clovers\": 100\n}", string(data))
}

func BenchmarkEncode(b *testing.B) {
	data := &envelopeLike{Kind: "player", Version: 1, Payload: make([]byte, 2048)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(data)
	}
}
