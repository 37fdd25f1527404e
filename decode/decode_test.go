package decode_test

import (
	"bytes"
	"crypto/ed25519"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/resman/decode"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleModel() *decode.ParsedModel {
	return &decode.ParsedModel{
		UnitsIndexed: []decode.IndexedUnit{{
			Name: "quad",
			Vertices: []decode.ParsedVertex{
				{Position: [3]float32{0, 0, 0}},
				{Position: [3]float32{1, 0, 0}},
				{Position: [3]float32{1, 1, 0}},
				{Position: [3]float32{0, 1, 0}},
			},
			Indices:  []uint32{0, 1, 2, 0, 2, 3},
			Material: decode.ParsedMaterial{AlbedoMap: "brick.png", Roughness: 0.5},
		}},
		Skeleton: decode.ParsedSkeleton{Joints: []decode.ParsedJoint{
			{Name: "root", Parent: -1},
		}},
	}
}

func TestDecodeImage_PNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(2, 1, color.RGBA{B: 255, A: 255})

	img, err := decode.DecodeImage(encodePNG(t, src))
	require.NoError(t, err)

	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, img.Format)
	assert.Equal(t, 12, img.Stride())
	require.Len(t, img.Pix, 3*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, img.Pix[0:4])
	assert.Equal(t, []byte{0, 0, 255, 255}, img.Pix[len(img.Pix)-4:])
}

func TestDecodeImage_Gray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(1, 1, color.Gray{Y: 200})

	img, err := decode.DecodeImage(encodePNG(t, src))
	require.NoError(t, err)
	assert.Equal(t, []byte{200, 200, 200, 255}, img.Pix[12:16])
}

func TestDecodeImage_Errors(t *testing.T) {
	_, err := decode.DecodeImage(nil)
	assert.ErrorIs(t, err, decode.ErrEmptyData)

	_, err = decode.DecodeImage([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestModel_RoundTrip(t *testing.T) {
	data, err := decode.EncodeModel(sampleModel())
	require.NoError(t, err)

	m, err := decode.DecodeModel(data)
	require.NoError(t, err)

	assert.Equal(t, decode.ModelVersion, m.Version)
	require.Len(t, m.UnitsIndexed, 1)
	assert.Equal(t, "quad", m.UnitsIndexed[0].Name)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.UnitsIndexed[0].Indices)
	assert.Equal(t, "brick.png", m.UnitsIndexed[0].Material.AlbedoMap)
	require.Len(t, m.Skeleton.Joints, 1)
	assert.Equal(t, -1, m.Skeleton.Joints[0].Parent)
}

func TestModel_Rejects(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := decode.DecodeModel(nil)
		assert.ErrorIs(t, err, decode.ErrEmptyData)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := decode.DecodeModel([]byte{0xc1, 0xc1, 0xc1})
		assert.Error(t, err)
	})

	t.Run("version", func(t *testing.T) {
		m := sampleModel()
		m.Version = 7
		data, err := decode.EncodeModel(m)
		require.NoError(t, err)
		_, err = decode.DecodeModel(data)
		assert.ErrorIs(t, err, decode.ErrModelVersion)
	})

	t.Run("index out of range", func(t *testing.T) {
		m := sampleModel()
		m.UnitsIndexed[0].Indices = append(m.UnitsIndexed[0].Indices, 9)
		data, err := decode.EncodeModel(m)
		require.NoError(t, err)
		_, err = decode.DecodeModel(data)
		assert.ErrorIs(t, err, decode.ErrMalformedModel)
	})

	t.Run("bad parent", func(t *testing.T) {
		m := sampleModel()
		m.Skeleton.Joints[0].Parent = 3
		data, err := decode.EncodeModel(m)
		require.NoError(t, err)
		_, err = decode.DecodeModel(data)
		assert.ErrorIs(t, err, decode.ErrMalformedModel)
	})
}

func TestParsedAnimation_DurationTicks(t *testing.T) {
	a := decode.ParsedAnimation{Joints: []decode.ParsedJointTrack{
		{Keyframes: []decode.ParsedKeyframe{{Time: 1}, {Time: 4}}},
		{Keyframes: []decode.ParsedKeyframe{{Time: 2.5}}},
	}}
	assert.InDelta(t, 4.0, a.DurationTicks(), 1e-6)
}

func TestSignedModel(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	body, err := decode.EncodeModel(sampleModel())
	require.NoError(t, err)
	signed := decode.Sign(body, priv)
	require.Len(t, signed, len(body)+decode.SignatureSize)

	m, err := decode.DecodeVerifiedModel(signed, decode.Ed25519Verifier{}, pub)
	require.NoError(t, err)
	assert.Len(t, m.UnitsIndexed, 1)

	t.Run("tampered", func(t *testing.T) {
		bad := bytes.Clone(signed)
		bad[0] ^= 0xff
		_, err := decode.DecodeVerifiedModel(bad, decode.Ed25519Verifier{}, pub)
		assert.ErrorIs(t, err, decode.ErrBadSignature)
	})

	t.Run("other key", func(t *testing.T) {
		other, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		_, err = decode.DecodeVerifiedModel(signed, decode.Ed25519Verifier{}, other)
		assert.ErrorIs(t, err, decode.ErrBadSignature)
	})

	t.Run("unsigned", func(t *testing.T) {
		_, err := decode.DecodeVerifiedModel(signed[:10], decode.Ed25519Verifier{}, pub)
		assert.ErrorIs(t, err, decode.ErrUnsigned)
	})

	t.Run("short key", func(t *testing.T) {
		_, err := decode.DecodeVerifiedModel(signed, decode.Ed25519Verifier{}, []byte{1, 2, 3})
		assert.ErrorIs(t, err, decode.ErrBadSignature)
	})

	t.Run("no key", func(t *testing.T) {
		_, err := decode.DecodeVerifiedModel(signed, decode.Ed25519Verifier{}, nil)
		assert.ErrorIs(t, err, decode.ErrBadPublicKey)
	})
}

// keyedVerifier accepts any signature made with its key, whatever its size.
type keyedVerifier struct {
	key []byte
}

func (v keyedVerifier) Verify(_, _, publicKey []byte) bool {
	return bytes.Equal(publicKey, v.key)
}

func TestSignedModel_CustomVerifierKeySize(t *testing.T) {
	body, err := decode.EncodeModel(sampleModel())
	require.NoError(t, err)
	signed := append(bytes.Clone(body), make([]byte, decode.SignatureSize)...)

	key := bytes.Repeat([]byte{7}, 48)
	m, err := decode.DecodeVerifiedModel(signed, keyedVerifier{key: key}, key)
	require.NoError(t, err)
	assert.Len(t, m.UnitsIndexed, 1)

	_, err = decode.DecodeVerifiedModel(signed, keyedVerifier{key: key}, key[:16])
	assert.ErrorIs(t, err, decode.ErrBadSignature)
}

func TestSplitSigned(t *testing.T) {
	data := make([]byte, decode.SignatureSize+3)
	body, sig, err := decode.SplitSigned(data)
	require.NoError(t, err)
	assert.Len(t, body, 3)
	assert.Len(t, sig, decode.SignatureSize)

	_, _, err = decode.SplitSigned(data[:decode.SignatureSize])
	assert.ErrorIs(t, err, decode.ErrUnsigned)
}
