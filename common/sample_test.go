package common

import (
	"math"
	"math/rand"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSampleRoundTrip(t *testing.T) {
	require := require.New(t)

	s := NewSample("dev1", 23.45)
	data, err := s.Marshal()
	require.Nil(err)
	require.Equal(`{"sender":"dev1","value":23.45}`, string(data))
	require.Equal("dev1:23.45", s.String())

	r := rand.New(rand.NewSource(7))
	values := []float32{0, -1, 20, 34.999996, math.SmallestNonzeroFloat32, math.MaxFloat32}
	for i := 0; i < 256; i++ {
		values = append(values, 20+r.Float32()*15)
	}
	senders := []string{"", "dev1", "温度计", "a \"quoted\" \\ name", "<script>"}
	for i, v := range values {
		s := NewSample(senders[i%len(senders)], v)
		data, err := s.Marshal()
		require.Nil(err)
		d, err := DecodeSample(data)
		require.Nil(err)
		require.Equal(s.Sender, d.Sender)
		require.Equal(math.Float32bits(s.Value), math.Float32bits(d.Value))
	}
}

func TestSampleMarshalUnsupported(t *testing.T) {
	require := require.New(t)

	for _, v := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		data, err := NewSample("dev1", v).Marshal()
		require.Nil(data)
		require.ErrorIs(err, ErrEncode)
	}
}

func TestSampleDecodeLenient(t *testing.T) {
	require := require.New(t)

	s, err := DecodeSample([]byte(" {\"value\": 30, \"sender\": \"dev2\", \"unit\": \"C\"}\n"))
	require.Nil(err)
	require.Equal("dev2", s.Sender)
	require.Equal(float32(30), s.Value)
}

func TestSampleDecodeMalformed(t *testing.T) {
	require := require.New(t)

	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("null"),
		[]byte("{"),
		[]byte("hello"),
		[]byte(`{"sender":"dev1"}`),
		[]byte(`{"value":21.5}`),
		[]byte(`{"sender":"dev1","value":null}`),
		[]byte(`{"sender":1,"value":21.5}`),
		[]byte(`{"sender":"dev1","value":"21.5"}`),
		[]byte(`{"sender":"dev1","value":1e40}`),
		[]byte(`{"sender":"dev1","value":21.5}}`),
		[]byte(`{"sender":"dev1","value":21.5} {"sender":"dev1","value":21.5}`),
		[]byte(`[{"sender":"dev1","value":21.5}]`),
		[]byte(`{"SENDER":"dev1","VALUE":21.5}`),
		[]byte(`{"Sender":"dev1","value":21.5}`),
		[]byte(`{"sender":"dev1","Value":21.5}`),
		[]byte(`{"sender":null,"value":21.5}`),
		{0xff, 0xfe, 0x7b, 0x00},
	}
	for _, in := range inputs {
		s, err := DecodeSample(in)
		require.Nil(s, string(in))
		require.ErrorIs(err, ErrDecode, string(in))
	}
}

func TestRawText(t *testing.T) {
	require := require.New(t)

	require.Equal("", RawText(nil))
	require.Equal(`{"sender":"dev1"`, RawText([]byte(`{"sender":"dev1"`)))

	text := RawText([]byte{'o', 'k', 0xff, 0xc3, '!', 0xe2, 0x82})
	require.True(utf8.ValidString(text))
	require.Equal("ok��!�", text)
	require.Equal("ok��!", RawText([]byte("ok\xff\xc3!")))
	require.Equal("���", RawText([]byte("\xed\xa0\x80")))
	require.Equal("�a", RawText([]byte("\xf0\x90\x80a")))
	require.Equal("��", RawText([]byte("\xc0\xaf")))
	require.Equal("温�度", RawText([]byte("温\xe5\xba度")))

	r := rand.New(rand.NewSource(11))
	for i := 0; i < 128; i++ {
		buf := make([]byte, r.Intn(64))
		r.Read(buf)
		require.True(utf8.ValidString(RawText(buf)))
	}
}
