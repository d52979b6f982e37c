// Package client implements store.IClient on top of the RPC transports.
//
// Each client talks to one bucket on one cluster: the bucket name selects the
// shard (common.ShardID) and the credentials in the ClientConfig authenticate
// the connection. The collector's connection pools create one client per pooled
// handle.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		TimeoutSecond: 5,
//		Username:      "default",
//		Password:      "secret",
//		Transport: common.ClientTransportConfig{
//			Endpoints:  []string{"cb-east-1:8091"},
//			RetryCount: 3,
//		},
//	}
//
//	c, err := client.NewRPCStore("default", config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.Set("xdcr_track_0f3c...", []byte("xdcr_track_0f3c..."))
//
// Errors:
//
//	Transport failures are returned as is. Failures reported by the remote store
//	are returned as *store.Error with the original return code. Using a closed
//	client returns a *store.Error with code RetCClosed.
//
// Thread Safety:
//
//	Clients are safe for concurrent use.
package client
