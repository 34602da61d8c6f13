package backend

import (
	"bufio"
	"io"
	"strings"
)

// frame is one Server-Sent Event as read off the wire
type frame struct {
	event string
	data  string
}

// frameReader splits an SSE byte stream into frames.
// Frames end at a blank line; "data:" lines are joined with newlines,
// "event:" names the frame, comments and other fields are skipped.
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next frame that carries data, or the read error (io.EOF at end of stream)
func (fr *frameReader) next() (frame, error) {
	var (
		event string
		data  []string
		seen  bool
	)

	for {
		line, err := fr.r.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF && seen {
				return frame{event: event, data: strings.Join(data, "\n")}, nil
			}
			return frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if seen {
				return frame{event: event, data: strings.Join(data, "\n")}, nil
			}
			event = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
			seen = true
		}
	}
}
