// Package palette implements the color palette service: a TCP server that
// hands out N random colors per connection and the client that asks for them.
//
// Wire protocol v1:
//
//	request:  ASCII decimal digits of the count, optionally followed by '\n'
//	          (the first chunk read is the whole request; the client may
//	          also half-close its write side)
//	response: {"version":1,"colors":["#RRGGBB",...]} then the server closes
package palette

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/fibivi/internal/contracts"
)

// ProtocolVersion is the reply schema version
const ProtocolVersion = 1

// maxRequestBytes bounds the count message
const maxRequestBytes = 32

// Reply is the JSON reply body
type Reply struct {
	Version int      `json:"version"`
	Colors  []string `json:"colors"`
}

// EncodeRequest renders a count request
func EncodeRequest(count int) []byte {
	return []byte(strconv.Itoa(count) + "\n")
}

// ParseCountRequest parses the request text into a count in [0, max].
// max <= 0 means unbounded.
func ParseCountRequest(data []byte, max int) (int, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, fmt.Errorf("%w: empty request", contracts.ErrInvalidCountRequest)
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q is not a non-negative integer", contracts.ErrInvalidCountRequest, text)
		}
	}

	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", contracts.ErrInvalidCountRequest, text, err)
	}
	if max > 0 && count > max {
		return 0, fmt.Errorf("%w: count %d exceeds limit %d", contracts.ErrInvalidCountRequest, count, max)
	}
	return count, nil
}

// EncodeReply serializes a palette
func EncodeReply(p contracts.Palette) ([]byte, error) {
	reply := Reply{Version: ProtocolVersion, Colors: p.Strings()}
	return json.Marshal(reply)
}

// DecodeReply parses a reply and checks it holds exactly want valid colors
func DecodeReply(data []byte, want int) (contracts.Palette, error) {
	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrMalformedPaletteReply, err)
	}
	if reply.Version != ProtocolVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", contracts.ErrMalformedPaletteReply, reply.Version)
	}
	if len(reply.Colors) != want {
		return nil, fmt.Errorf("%w: got %d colors, want %d", contracts.ErrMalformedPaletteReply, len(reply.Colors), want)
	}

	out := make(contracts.Palette, len(reply.Colors))
	for i, s := range reply.Colors {
		c := contracts.Color(s)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: entry %d %q is not #RRGGBB", contracts.ErrMalformedPaletteReply, i, s)
		}
		out[i] = c
	}
	return out, nil
}
