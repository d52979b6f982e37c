// Package targets turns the externally supplied bucket list into the immutable
// BucketTarget records the collector probes.
package targets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credentials used to open a bucket on a cluster.
type Credentials struct {
	Username string
	Password string
}

// BucketTarget describes one bucket that is replicated from SourceHost to
// DestinationHost. Values are built once at startup and never mutated.
type BucketTarget struct {
	Bucket          string
	SourceHost      string
	DestinationHost string
	Credentials     Credentials
}

func (t BucketTarget) String() string {
	return fmt.Sprintf("%s (%s -> %s)", t.Bucket, t.SourceHost, t.DestinationHost)
}

// Settings are the cluster level parameters shared by all buckets.
type Settings struct {
	MasterNode     string // source cluster
	DestMasterNode string // destination cluster
	RestPassword   string // shared password; the bucket name is the username
}

// BucketResolver supplies the bucket names to probe. It is invoked once at startup.
type BucketResolver interface {
	GetBuckets(ctx context.Context) ([]string, error)
}

// ErrNoBuckets is returned when the resolver yields no usable bucket.
var ErrNoBuckets = errors.New("no buckets configured")

// BuildTargets resolves the bucket list and creates one target per distinct bucket,
// keeping the order of the resolver.
func BuildTargets(ctx context.Context, resolver BucketResolver, settings Settings) ([]BucketTarget, error) {
	if settings.MasterNode == "" {
		return nil, fmt.Errorf("source master node is required")
	}
	if settings.DestMasterNode == "" {
		return nil, fmt.Errorf("destination master node is required")
	}

	buckets, err := resolver.GetBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buckets: %w", err)
	}

	seen := make(map[string]struct{}, len(buckets))
	result := make([]BucketTarget, 0, len(buckets))
	for _, b := range buckets {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}

		result = append(result, BucketTarget{
			Bucket:          b,
			SourceHost:      settings.MasterNode,
			DestinationHost: settings.DestMasterNode,
			Credentials: Credentials{
				Username: b,
				Password: settings.RestPassword,
			},
		})
	}

	if len(result) == 0 {
		return nil, ErrNoBuckets
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Resolvers
// --------------------------------------------------------------------------

// StaticResolver returns a fixed bucket list.
type StaticResolver []string

func (r StaticResolver) GetBuckets(context.Context) ([]string, error) {
	return append([]string(nil), r...), nil
}

// ParseStaticResolver splits a comma separated list of bucket names.
func ParseStaticResolver(list string) StaticResolver {
	var r StaticResolver
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			r = append(r, b)
		}
	}
	return r
}

// bucketFile is the YAML layout read by FileResolver:
//
//	buckets:
//	  - bucket-1
//	  - bucket-2
type bucketFile struct {
	Buckets []string `yaml:"buckets"`
}

// FileResolver reads the bucket list from a YAML file on every call.
type FileResolver struct {
	Path string
}

func (r FileResolver) GetBuckets(context.Context) ([]string, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, err
	}

	var f bucketFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid bucket file %s: %w", r.Path, err)
	}
	return f.Buckets, nil
}
