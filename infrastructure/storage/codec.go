package storage

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Records are stored as protobuf Struct values. Timestamps are kept as
// RFC 3339 strings since Struct numbers are float64 and would lose nanoseconds.

func encode(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return proto.Marshal(s)
}

func decode(data []byte) (record, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return record{}, fmt.Errorf("decode record: %w", err)
	}
	return record{fields: s.GetFields()}, nil
}

type record struct {
	fields map[string]*structpb.Value
}

func (r record) string(key string) string {
	return r.fields[key].GetStringValue()
}

func (r record) bool(key string) bool {
	return r.fields[key].GetBoolValue()
}

func (r record) time(key string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.string(key))
}

func (r record) strings(key string) []string {
	values := r.fields[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func seqKey(t time.Time) string {
	return fmt.Sprintf("%019d", t.UnixNano())
}
