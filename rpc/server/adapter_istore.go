package server

import (
	"fmt"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
)

// IRPCServerAdapter executes a decoded request against the store of a bucket.
// Failures are reported in the returned message, never as a Go error.
type IRPCServerAdapter interface {
	Handle(req *common.Message, store store.IStore) (resp *common.Message)
}

// NewIStoreServerAdapter returns the adapter for the four store operations
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTKVSet:
		return common.NewSetResponse(s.Set(req.Key, req.Value))
	case common.MsgTKVDelete:
		return common.NewDeleteResponse(s.Delete(req.Key))
	case common.MsgTKVGet:
		val, ok, err := s.Get(req.Key)
		return common.NewGetResponse(val, ok, err)
	case common.MsgTKVHas:
		ok, err := s.Has(req.Key)
		return common.NewHasResponse(ok, err)
	default:
		resp := common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", req.MsgType))
		resp.Code = store.RetCUnsupportedOperation
		return resp
	}
}
