package codec

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"pubtools/pkg/core"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLZ4CompressorRoundTrip(t *testing.T) {
	fsys := memfs.New()
	content := []byte(strings.Repeat("local x = require('x')\n", 500))
	require.NoError(t, util.WriteFile(fsys, "a.lua", content, 0o644))

	c, err := NewLZ4Compressor(9)
	require.NoError(t, err)
	require.NoError(t, c.Compress(context.Background(), fsys, "a.lua", "a.lz4"))

	compressed, err := util.ReadFile(fsys, "a.lz4")
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(content))

	var out bytes.Buffer
	_, err = out.ReadFrom(lz4.NewReader(bytes.NewReader(compressed)))
	require.NoError(t, err)
	assert.Equal(t, content, out.Bytes())
}

func TestLZ4CompressorEmptyInput(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "e.json", nil, 0o644))

	c, err := NewLZ4Compressor(0)
	require.NoError(t, err)
	require.NoError(t, c.Compress(context.Background(), fsys, "e.json", "e.lz4"))

	compressed, err := util.ReadFile(fsys, "e.lz4")
	require.NoError(t, err)

	report, err := InspectFrame(bytes.NewReader(core.EncodeFrame(0, compressed)))
	require.NoError(t, err)
	assert.True(t, report.LZ4)
	assert.Zero(t, report.Decoded)
}

func TestLZ4CompressorMissingSource(t *testing.T) {
	c, err := NewLZ4Compressor(1)
	require.NoError(t, err)
	assert.Error(t, c.Compress(context.Background(), memfs.New(), "none.lua", "none.lz4"))
}

func TestNewLZ4CompressorLevelRange(t *testing.T) {
	_, err := NewLZ4Compressor(-1)
	assert.Error(t, err)
	_, err = NewLZ4Compressor(10)
	assert.Error(t, err)
}

func TestLZ4CompressorInsidePipeline(t *testing.T) {
	fsys := memfs.New()
	content := []byte(`{"sprites":["a","b","c"],"sprites2":["a","b","c"]}`)
	require.NoError(t, util.WriteFile(fsys, "ui/atlas.json", content, 0o644))

	c, err := NewLZ4Compressor(9)
	require.NoError(t, err)
	_, _, err = core.NewCompressStage(fsys, c).Process(context.Background(), "ui/atlas.json")
	require.NoError(t, err)

	framed, err := util.ReadFile(fsys, "ui/atlas.json")
	require.NoError(t, err)

	report, err := InspectFrame(bytes.NewReader(framed))
	require.NoError(t, err)
	assert.True(t, report.LZ4)
	assert.EqualValues(t, len(content), report.Header.OriginalLen)
	assert.EqualValues(t, len(content), report.Decoded)
	assert.EqualValues(t, len(framed)-core.FrameHeaderSize, report.CompressedSize)
}

func TestInspectFrameRejectsLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = InspectFrame(bytes.NewReader(core.EncodeFrame(99, buf.Bytes())))
	assert.ErrorContains(t, err, "header says 99")
}

func TestInspectFrameOpaquePayload(t *testing.T) {
	report, err := InspectFrame(bytes.NewReader(core.EncodeFrame(3, []byte("abc"))))
	require.NoError(t, err)
	assert.False(t, report.LZ4)
	assert.EqualValues(t, 3, report.CompressedSize)

	_, err = InspectFrame(bytes.NewReader([]byte("not a frame")))
	assert.ErrorIs(t, err, core.ErrBadMagic)
}
