package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func setRequired(t *testing.T) {
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")
	t.Setenv("JWT_SECRET", "a-secret-long-enough")
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(8080, config.Port)
	req.Equal(1500*time.Millisecond, config.ExecutionDelay)
	req.Equal(5*time.Second, config.SnapshotTimeout)
	req.Nil(config.LimitMessages)
	req.Equal(30*time.Second, config.MetricInterval)
	req.Equal(80, config.LowCapacityThreshold)
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("LIMIT_MESSAGES", "50")
	t.Setenv("SUBSCRIBE_BACKOFF", "2s")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(50, *config.LimitMessages)
	req.Equal(2*time.Second, config.SubscribeBackoff)
}

func TestLoadConfig_Rejects_Invalid_Values(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "replacement of two runes", key: "CHARACTER_REPLACEMENT", value: "**"},
		{name: "short secret", key: "JWT_SECRET", value: "short"},
		{name: "no runner", key: "NUMBER_OF_RUNNERS", value: "0"},
		{name: "threshold above 100", key: "LOW_CAPACITY_THRESHOLD", value: "120"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			setRequired(t)
			t.Setenv(tc.key, tc.value)

			_, err := LoadConfig()

			req.Error(err)
		})
	}
}

func TestRecordMapper(t *testing.T) {
	req := require.New(t)

	row := RecordMapper("msgid:room-1:0f8fad5b-d9cb-469f-a165-70867728950e", []byte("msg:..."))

	req.Equal("MSGID", row.Type)
	req.Equal("room-1", row.Namespace)
	req.Equal("0f8fad5b", row.EntityID)
}

func TestRecordMapper_Shows_Message_Content(t *testing.T) {
	req := require.New(t)
	record, err := structpb.NewStruct(map[string]any{"content": "hello"})
	req.NoError(err)
	val, err := proto.Marshal(record)
	req.NoError(err)

	row := RecordMapper("msg:room-1:1767225600000000000:0f8fad5b", val)

	req.Equal("MSG", row.Type)
	req.Equal("hello", row.Detail)
}
