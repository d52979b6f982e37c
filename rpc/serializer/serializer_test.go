package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request with a marker key as its own value
		{
			MsgType: common.MsgTKVSet,
			Key:     "xdcr_track_4f9c2d7e8a1b4c3d9e0f1a2b3c4d5e6f",
			Value:   []byte("xdcr_track_4f9c2d7e8a1b4c3d9e0f1a2b3c4d5e6f"),
		},

		// Get response
		{
			MsgType: common.MsgTKVGet,
			Key:     "test-key",
			Value:   []byte("test-value"),
			Ok:      true,
		},

		// Has response for a missing key
		{
			MsgType: common.MsgTKVHas,
			Key:     "missing",
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
			Code:    store.RetCInternalError,
		},

		// Failed delete on a closed handle
		{
			MsgType: common.MsgTKVDelete,
			Key:     "test-key",
			Err:     "handle closed",
			Code:    store.RetCClosed,
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTKVHas; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestBinarySerializerEmptyValue checks that an empty value stays distinguishable from no value
func TestBinarySerializerEmptyValue(t *testing.T) {
	serializer := NewBinarySerializer()

	for _, value := range [][]byte{nil, {}} {
		data, err := serializer.Serialize(common.Message{MsgType: common.MsgTKVSet, Key: "k", Value: value})
		if err != nil {
			t.Fatalf("Failed to serialize: %v", err)
		}

		var result common.Message
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Fatalf("Failed to deserialize: %v", err)
		}
		if (value == nil) != (result.Value == nil) {
			t.Errorf("Value nil/non-nil mismatch: expected %#v, got %#v", value, result.Value)
		}
	}
}

// TestBinarySerializerResetsMessage makes sure fields of a reused message are cleared
func TestBinarySerializerResetsMessage(t *testing.T) {
	serializer := NewBinarySerializer()

	data, _ := serializer.Serialize(common.Message{MsgType: common.MsgTKVHas})
	result := common.Message{Key: "stale", Ok: true, Err: "stale", Value: []byte("stale")}
	if err := serializer.Deserialize(data, &result); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !reflect.DeepEqual(common.Message{MsgType: common.MsgTKVHas}, result) {
		t.Errorf("stale fields survived: %+v", result)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{"Empty data", []byte{}, true},
		{"Too short header", []byte{1}, true},
		{"Valid header only", []byte{1, 0}, false},
		{"Invalid length for key", []byte{3, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, true},
		{"Invalid length for value", []byte{3, 2, 0, 0, 0, 10}, true},
		{"Missing return code", []byte{2, 16, 0, 0, 0}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestNew tests the lookup of serializers by name
func TestNew(t *testing.T) {
	for _, name := range Names {
		s, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("New(%q) returned serializer %q", name, s.Name())
		}
	}

	if _, err := New("xml"); err == nil {
		t.Errorf("expected error for unknown serializer")
	}
}

// TestDeserializeResetsMessage tests that no serializer leaks fields of a reused message
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			data, err := s.Serialize(common.Message{MsgType: common.MsgTKVHas, Key: "k"})
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}

			result := common.Message{Value: []byte("stale"), Ok: true, Err: "stale", Code: store.RetCClosed}
			if err := s.Deserialize(data, &result); err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if !reflect.DeepEqual(common.Message{MsgType: common.MsgTKVHas, Key: "k"}, result) {
				t.Errorf("stale fields survived: %+v", result)
			}
		})
	}
}

// TestJSONRejectsUnknownFields tests that the json serializer does not silently drop fields
func TestJSONRejectsUnknownFields(t *testing.T) {
	var msg common.Message
	if err := NewJSONSerializer().Deserialize([]byte(`{"msg_type":"get","bucket":"x"}`), &msg); err == nil {
		t.Errorf("expected error for unknown field")
	}
}
