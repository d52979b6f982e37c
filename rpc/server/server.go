package server

import (
	"fmt"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/rpc/common"
	"github.com/ValentinKolb/xdcrlag/rpc/serializer"
	"github.com/ValentinKolb/xdcrlag/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a bucket exposed by the server together with the adapter
// that handles requests for it
type serverShard struct {
	Bucket  string
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// RPCServer exposes stores over an RPC transport, one shard per bucket.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//	s.RegisterBucket("default", memstore.New("default"))
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	Logger.Debugf("Created RPC Server")
	Logger.Debugf("%s", config.String())

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, serverShard](),
	}
}

// RegisterBucket exposes s under the shard id of bucket and returns the shard id.
func (s *RPCServer) RegisterBucket(bucket string, st store.IStore) (uint64, error) {
	shardID := common.ShardID(bucket)
	shard := serverShard{Bucket: bucket, Store: st, Adapter: NewIStoreServerAdapter()}

	if existing, loaded := s.shards.LoadOrStore(shardID, shard); loaded {
		return 0, fmt.Errorf("shard %d already used by bucket %s", shardID, existing.Bucket)
	}
	Logger.Infof("exposing bucket %s as shard %d", bucket, shardID)
	return shardID, nil
}

// Serve starts the transport and blocks until Close is called
func (s *RPCServer) Serve() error {
	s.transport.RegisterHandler(s.handle)
	return s.transport.Listen(s.config)
}

// Addr returns the address the server listens on ("" before Serve)
func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

// Close stops the server
func (s *RPCServer) Close() error {
	return s.transport.Close()
}

// handle decodes a request, lets the adapter of the shard handle it and encodes
// the response
func (s *RPCServer) handle(shardId uint64, req []byte) []byte {
	var respMsg *common.Message

	if shard, ok := s.shards.Load(shardId); !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else {
		var msg common.Message
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
		} else {
			respMsg = shard.Adapter.Handle(&msg, shard.Store)
		}
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}
