package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/lib/store/memstore"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
)

// simulation replicates every bucket of the targets between two in-memory stores
type simulation struct {
	stores map[string]*memstore.Store // host/bucket -> store
	links  []*memstore.Link
}

func newSimulation(bucketTargets []targets.BucketTarget, delay time.Duration) *simulation {
	sim := &simulation{stores: make(map[string]*memstore.Store)}
	for _, t := range bucketTargets {
		src := memstore.New(t.Bucket + "@" + t.SourceHost)
		dst := memstore.New(t.Bucket + "@" + t.DestinationHost)
		sim.stores[storeKey(t.SourceHost, t.Bucket)] = src
		sim.stores[storeKey(t.DestinationHost, t.Bucket)] = dst
		sim.links = append(sim.links, memstore.Replicate(src, dst, delay))
	}
	return sim
}

// ClientFactory opens a client of the simulated store of bucket on host
func (s *simulation) ClientFactory(ctx context.Context, host, bucket string, _ targets.Credentials) (store.IClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, ok := s.stores[storeKey(host, bucket)]
	if !ok {
		return nil, fmt.Errorf("no simulated bucket %s on %s", bucket, host)
	}
	return st.Client(), nil
}

// Close stops all replication links
func (s *simulation) Close() {
	for _, l := range s.links {
		l.Close()
	}
}

func storeKey(host, bucket string) string {
	return host + "/" + bucket
}
