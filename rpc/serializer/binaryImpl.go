package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
)

// NewBinarySerializer creates a new serializer using a compact binary format
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: MsgType (1 byte), flags (1 byte), followed by the fields whose flag is
// set, in flag order. Strings and byte slices are prefixed with a 4 byte length.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasValue byte = 1 << 1
	hasOk    byte = 1 << 2
	hasErr   byte = 1 << 3
	hasCode  byte = 1 << 4
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Name() string {
	return "binary"
}

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte
	if msg.Key != "" {
		flags |= hasKey
		result = appendBytes(result, []byte(msg.Key))
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendBytes(result, msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendBytes(result, []byte(msg.Err))
	}
	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Code))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	rest := data[2:]

	if flags&hasKey != 0 {
		key, tail, err := readBytes(rest, "key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
		rest = tail
	}

	if flags&hasValue != 0 {
		value, tail, err := readBytes(rest, "value")
		if err != nil {
			return err
		}
		// empty, not nil, if the length is 0
		msg.Value = append(make([]byte, 0, len(value)), value...)
		rest = tail
	}

	msg.Ok = flags&hasOk != 0

	if flags&hasErr != 0 {
		errMsg, tail, err := readBytes(rest, "error")
		if err != nil {
			return err
		}
		msg.Err = string(errMsg)
		rest = tail
	}

	if flags&hasCode != 0 {
		if len(rest) < 8 {
			return fmt.Errorf("data too short for return code")
		}
		msg.Code = store.RetCode(binary.BigEndian.Uint64(rest[:8]))
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Code != store.RetCSuccess {
		size += 8
	}
	return size
}

// appendBytes appends a length prefixed byte slice
func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

// readBytes reads a length prefixed byte slice and returns the remaining data
func readBytes(data []byte, field string) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("data too short for %s length", field)
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(n) {
		return nil, nil, fmt.Errorf("data too short for %s data", field)
	}
	return data[:n], data[n:], nil
}
