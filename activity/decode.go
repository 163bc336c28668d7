package activity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNotObject is returned when the input is not a JSON object at all.
var ErrNotObject = errors.New("activity is not a JSON object")

// Decode parses one activity. It never fails on missing or wrongly typed
// fields; those take their neutral default (empty text, no attachments,
// sequence 0, zero timestamp) so that one malformed activity cannot keep the
// rest of a transcript from rendering.
func Decode(data []byte) (Activity, error) {
	if !gjson.ValidBytes(data) {
		return Activity{}, ErrNotObject
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return Activity{}, ErrNotObject
	}
	return fromResult(r), nil
}

// DecodeSet parses a Direct Line ActivitySet frame. Members that are not
// objects are skipped.
func DecodeSet(data []byte) ([]Activity, string, error) {
	if !gjson.ValidBytes(data) {
		return nil, "", ErrNotObject
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return nil, "", ErrNotObject
	}

	var out []Activity
	eachArray(r.Get("activities"), func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, fromResult(v))
		}
		return true
	})
	return out, idField(r, "watermark"), nil
}

func fromResult(r gjson.Result) Activity {
	a := Activity{
		ID:   idField(r, "id"),
		Type: Type(stringField(r, "type")),
		From: Account{
			ID:   idField(r, "from.id"),
			Name: stringField(r, "from.name"),
			Role: Role(stringField(r, "from.role")),
		},
		Text:      stringField(r, "text"),
		Timestamp: parseTimestamp(stringField(r, "timestamp")),
	}

	eachArray(r.Get("attachments"), func(_, v gjson.Result) bool {
		if v.IsObject() {
			a.Attachments = append(a.Attachments, attachmentFrom(v))
		}
		return true
	})

	if sa := r.Get("suggestedActions"); sa.IsObject() {
		a.SuggestedActions = suggestedActionsFrom(sa)
	}

	eachArray(r.Get("entities"), func(_, v gjson.Result) bool {
		if v.IsObject() {
			a.Entities = append(a.Entities, entityFrom(v))
		}
		return true
	})

	if cd := r.Get("channelData"); cd.IsObject() {
		c := channelDataFrom(cd)
		a.ChannelData = &c
	}
	return a
}

// localTimestamp is ISO-8601 without a zone offset.
const localTimestamp = "2006-01-02T15:04:05.999999999"

// parseTimestamp reads RFC 3339 timestamps. Timestamps without a zone are
// taken as local time; anything else is the zero instant.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(localTimestamp, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func attachmentFrom(r gjson.Result) Attachment {
	att := Attachment{
		ContentType: stringField(r, "contentType"),
		ContentURL:  stringField(r, "contentUrl"),
		Name:        stringField(r, "name"),
	}
	if c := r.Get("content"); c.Exists() {
		att.Content = json.RawMessage(c.Raw)
	}
	return att
}

func suggestedActionsFrom(r gjson.Result) *SuggestedActions {
	sa := &SuggestedActions{}
	eachArray(r.Get("to"), func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			sa.To = append(sa.To, v.Str)
		}
		return true
	})
	eachArray(r.Get("actions"), func(_, v gjson.Result) bool {
		if v.IsObject() {
			sa.Actions = append(sa.Actions, CardAction{
				Type:  stringField(v, "type"),
				Title: stringField(v, "title"),
				Value: valueField(v.Get("value")),
			})
		}
		return true
	})
	return sa
}

// valueField keeps string values as is and any other JSON value in raw form.
func valueField(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	}
	return v.Raw
}

// entityFrom reads keys such as "@type" through Map since gjson treats a
// leading '@' in a path as a modifier.
func entityFrom(r gjson.Result) Entity {
	fields := r.Map()
	e := Entity{
		Type:       stringOf(fields["type"]),
		SchemaType: stringOf(fields["@type"]),
	}
	eachArray(fields["citation"], func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		cf := v.Map()
		e.Citations = append(e.Citations, Citation{
			ID:       stringOf(cf["@id"]),
			Position: intField(v, "position"),
			Appearance: Appearance{
				Name:     stringField(v, "appearance.name"),
				URL:      stringField(v, "appearance.url"),
				Abstract: stringField(v, "appearance.abstract"),
			},
		})
		return true
	})
	return e
}

// eachArray walks v when it is an array and ignores it otherwise.
func eachArray(v gjson.Result, fn func(key, value gjson.Result) bool) {
	if v.IsArray() {
		v.ForEach(fn)
	}
}

func stringOf(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// UnmarshalJSON decodes with the same tolerance as Decode.
func (a *Activity) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
