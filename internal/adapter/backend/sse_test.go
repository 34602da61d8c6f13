package backend

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameReaderEvents(t *testing.T) {
	input := "event: new_business\ndata: {\"id\":1}\n\n: keep-alive\n\nevent: market_update\ndata: {\"stocks\":[]}\n\n"
	fr := newFrameReader(strings.NewReader(input))

	f, err := fr.next()
	require.NoError(t, err)
	assert.Equal(t, "new_business", f.event)
	assert.Equal(t, `{"id":1}`, f.data)

	f, err = fr.next()
	require.NoError(t, err)
	assert.Equal(t, "market_update", f.event)

	_, err = fr.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameReaderJoinsDataLines(t *testing.T) {
	fr := newFrameReader(strings.NewReader("data: one\ndata:two\n\n"))

	f, err := fr.next()
	require.NoError(t, err)
	assert.Equal(t, "", f.event)
	assert.Equal(t, "one\ntwo", f.data)
}

func TestFrameReaderCarriageReturnsAndTrailingFrame(t *testing.T) {
	fr := newFrameReader(strings.NewReader("event: connect\r\ndata: {}\r\n\r\nevent: last\ndata: x"))

	f, err := fr.next()
	require.NoError(t, err)
	assert.Equal(t, "connect", f.event)
	assert.Equal(t, "{}", f.data)

	f, err = fr.next()
	require.NoError(t, err)
	assert.Equal(t, "last", f.event)
	assert.Equal(t, "x", f.data)

	_, err = fr.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameReaderSkipsEventWithoutData(t *testing.T) {
	fr := newFrameReader(strings.NewReader("event: orphan\n\nevent: real\ndata: 1\n\n"))

	f, err := fr.next()
	require.NoError(t, err)
	assert.Equal(t, "real", f.event)
	assert.Equal(t, "1", f.data)
}
