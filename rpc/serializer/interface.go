package serializer

import (
	"fmt"

	"github.com/ValentinKolb/xdcrlag/rpc/common"
)

// IRPCSerializer converts Messages to and from the payload of a frame. Client and
// server of one connection have to use the same serializer.
type IRPCSerializer interface {
	// Name identifies the format ("json", "gob", "binary")
	Name() string
	// Serialize encodes msg
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg, replacing all of its fields
	Deserialize(b []byte, msg *common.Message) error
}

// Names lists the formats accepted by New
var Names = []string{"binary", "json", "gob"}

// New returns the serializer with the given name
func New(name string) (IRPCSerializer, error) {
	switch name {
	case "binary":
		return NewBinarySerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %q (expected one of %v)", name, Names)
	}
}
