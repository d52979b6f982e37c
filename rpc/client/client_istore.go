package client

import (
	"sync/atomic"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/serializer"
	"github.com/ValentinKolb/xdcrlag/rpc/transport"
)

// NewRPCStore connects a new store client for bucket.
// The transport is owned by the returned client and closed with it.
func NewRPCStore(
	bucket string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IClient, error) {

	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcStore{
		rpcClientAdapter: rpcClientAdapter{
			shardId:    common.ShardID(bucket),
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
		bucket: bucket,
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
	bucket string
	closed atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) (err error) {
	_, err = i.invoke(common.NewSetRequest(key, value))
	return err
}

func (i *rpcStore) Delete(key string) (err error) {
	_, err = i.invoke(common.NewDeleteRequest(key))
	return err
}

func (i *rpcStore) Get(key string) (value []byte, loaded bool, err error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) Has(key string) (loaded bool, err error) {
	resp, err := i.invoke(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return nil
	}
	Logger.Debugf("closing client for bucket %s", i.bucket)
	return i.transport.Close()
}

// invoke sends req unless the client was closed
func (i *rpcStore) invoke(req *common.Message) (*common.Message, error) {
	if i.closed.Load() {
		return nil, store.NewError(store.RetCClosed, "client for bucket "+i.bucket+" is closed")
	}
	return invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
}
