package activity

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ChannelData is the transport-specific bag on an activity. The streaming
// fields are lifted out; everything else is kept verbatim in Extra so an
// activity survives a decode/encode round trip.
type ChannelData struct {
	StreamType     string
	StreamID       string
	StreamSequence int
	ChunkType      string

	// Extra holds the remaining fields as a JSON object.
	Extra json.RawMessage
}

var channelDataKeys = []string{"streamType", "streamId", "streamSequence", "chunkType"}

func (c ChannelData) MarshalJSON() ([]byte, error) {
	out := []byte("{}")
	if len(c.Extra) > 0 && gjson.ValidBytes(c.Extra) && gjson.ParseBytes(c.Extra).IsObject() {
		out = append([]byte(nil), c.Extra...)
	}

	var err error
	for _, k := range channelDataKeys {
		if out, err = sjson.DeleteBytes(out, k); err != nil {
			return nil, fmt.Errorf("failed to clear channelData.%s: %w", k, err)
		}
	}

	set := func(key string, value any) {
		if err != nil {
			return
		}
		out, err = sjson.SetBytes(out, key, value)
	}
	if c.StreamType != "" {
		set("streamType", c.StreamType)
	}
	if c.StreamID != "" {
		set("streamId", c.StreamID)
	}
	if c.ChunkType != "" || c.StreamSequence != 0 {
		set("streamSequence", c.StreamSequence)
	}
	if c.ChunkType != "" {
		set("chunkType", c.ChunkType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode channelData: %w", err)
	}
	return out, nil
}

func (c *ChannelData) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("channelData is not valid JSON")
	}
	*c = channelDataFrom(gjson.ParseBytes(data))
	return nil
}

// channelDataFrom lifts the streaming fields out of r. Wrongly typed fields
// fall back to their zero value.
func channelDataFrom(r gjson.Result) ChannelData {
	if !r.IsObject() {
		return ChannelData{}
	}
	return ChannelData{
		StreamType:     stringField(r, "streamType"),
		StreamID:       stringField(r, "streamId"),
		StreamSequence: intField(r, "streamSequence"),
		ChunkType:      stringField(r, "chunkType"),
		Extra:          json.RawMessage(r.Raw),
	}
}

// stringField returns the string at path; any other type is "".
func stringField(r gjson.Result, path string) string {
	v := r.Get(path)
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// idField is stringField that also takes numeric ids in raw form.
func idField(r gjson.Result, path string) string {
	v := r.Get(path)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return v.Raw
	}
	return ""
}

// intField accepts numbers and numeric strings; anything else is 0.
func intField(r gjson.Result, path string) int {
	v := r.Get(path)
	switch v.Type {
	case gjson.Number, gjson.String:
		n := v.Int()
		if n < 0 {
			return 0
		}
		return int(n)
	}
	return 0
}
