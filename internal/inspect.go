package internal

import (
	"strings"

	"github.com/mama165/sdk-go/database"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// RecordMapper renders the keys of the storage layer in the Badger inspector:
// room:{id}, owner:{owner}:{ts}:{id}, msg:{room}:{ts}:{id}, msgid:{room}:{id}
// and user:{email}.
func RecordMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	parts := strings.Split(key, ":")
	row.Type = strings.ToUpper(parts[0])
	switch parts[0] {
	case "room", "msg":
		row.Detail = describe(val, row.Detail)
	}
	switch parts[0] {
	case "room":
		row.EntityID = shorten(strings.Join(parts[1:], ":"))
	case "user":
		row.Namespace = "accounts"
		row.EntityID = strings.Join(parts[1:], ":")
	case "msgid":
		if len(parts) == 3 {
			row.Namespace = parts[1]
			row.EntityID = shorten(parts[2])
		}
	}
	return row
}

// describe shows the readable field of a record, fallback when it is not one.
func describe(val []byte, fallback string) string {
	var record structpb.Struct
	if err := proto.Unmarshal(val, &record); err != nil {
		return "Error: unmarshal failed"
	}
	for _, field := range []string{"content", "name"} {
		if v := record.GetFields()[field].GetStringValue(); v != "" {
			return v
		}
	}
	return fallback
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
