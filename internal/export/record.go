package export

import (
	"strings"

	"github.com/avdeyk/tgexport/internal/telegram"
)

// Mode selects which static field list a run projects.
type Mode string

// Crawl modes. Each mode owns one fixed field list; every record
// produced during a run has exactly that shape.
const (
	ModeHistory  Mode = "history"
	ModeComments Mode = "comments"
)

// historyFields is the column list for whole-chat exports: identity,
// timing, text, author/source, content and formatting, media helpers,
// metrics, behavior flags, and the service action.
var historyFields = []string{
	"id",
	"peer_id",
	"date",
	"date_ts",
	"edit_date",
	"post",
	"legacy",
	"ttl_period",

	"message",
	"raw_text",

	"from_id",
	"sender_id",
	"sender",
	"post_author",
	"via_bot_id",
	"via_business_bot_id",
	"fwd_from",

	"entities",
	"media",
	"reply_markup",
	"grouped_id",

	"reply_to_msg_id",
	"photo",
	"document",
	"video",
	"audio",
	"voice",
	"gif",
	"sticker",
	"poll",
	"web_preview",
	"file",

	"views",
	"forwards",
	"replies",
	"reactions",

	"pinned",
	"silent",
	"noforwards",
	"from_scheduled",
	"edit_hide",
	"out",
	"mentioned",
	"media_unread",
	"restriction_reason",

	"action",
}

// commentFields is the column subset for thread-comment exports.
var commentFields = []string{
	"id",
	"date",
	"date_ts",

	"message",
	"raw_text",

	"from_id",
	"sender",

	"reply_to_msg_id",

	"entities",
	"media",
	"reactions",
}

// Fields returns the mode's static field list. The returned slice is
// shared; callers must not mutate it.
func (m Mode) Fields() []string {
	if m == ModeComments {
		return commentFields
	}
	return historyFields
}

// Record is a fixed-shape named collection of normalized values
// representing one message or comment.
type Record struct {
	fields []string
	values []Value
}

// Fields returns the record's field names in order.
func (r Record) Fields() []string { return r.fields }

// Values returns the record's values, aligned with Fields.
func (r Record) Values() []Value { return r.values }

// Value looks up a field by name.
func (r Record) Value(name string) (Value, bool) {
	for i, f := range r.fields {
		if f == name {
			return r.values[i], true
		}
	}
	return Null(), false
}

// JSONText renders the record as one compact JSON object in field order.
func (r Record) JSONText() string {
	fields := make([]Field, len(r.fields))
	for i, name := range r.fields {
		fields[i] = Field{Key: name, Value: r.values[i]}
	}
	var b strings.Builder
	MappingValue(fields).appendJSON(&b)
	return b.String()
}

// ProjectMessage flattens one whole-chat history item into a record.
// peer is the containing chat's identity, normalized once per run and
// attached to every record rather than re-read per item. date_ts is the
// epoch-seconds mirror of the ISO date, for numeric range queries
// downstream. Absent attributes project to Null, never an absent column.
func ProjectMessage(msg telegram.RawMessage, peer Value) Record {
	return project(historyFields, msg, &peer)
}

// ProjectComment flattens one thread reply into a record.
func ProjectComment(msg telegram.RawMessage) Record {
	return project(commentFields, msg, nil)
}

func project(fields []string, msg telegram.RawMessage, peer *Value) Record {
	values := make([]Value, len(fields))
	for i, name := range fields {
		switch {
		case name == "peer_id" && peer != nil:
			values[i] = *peer
		case name == "date_ts":
			if msg.HasDate() {
				values[i] = IntValue(msg.Date.Unix())
			} else {
				values[i] = Null()
			}
		default:
			raw, ok := msg.Attr(name)
			if !ok {
				values[i] = Null()
				continue
			}
			values[i] = Normalize(raw)
		}
	}
	return Record{fields: fields, values: values}
}
