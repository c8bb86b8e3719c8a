// Package mongo implements identity.Store on top of the official
// MongoDB driver, sharing client handles through a clientcache.Cache.
package mongo

import (
	"context"
	"strings"
	"time"

	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/identd/mongoauth/pkg/clientcache"
)

// ClientCache is the process-wide cache of MongoDB client handles.
type ClientCache = clientcache.Cache[*driver.Client]

// NewClientCache creates a client cache whose entries are MongoDB
// clients. Opening an entry connects to the endpoints parsed from the
// descriptor and verifies reachability with a ping, so unreachable
// hosts fail at acquire time rather than on first query.
func NewClientCache(opts clientcache.Options, connectTimeout, socketTimeout time.Duration) *ClientCache {
	return clientcache.New(openClient(connectTimeout, socketTimeout), closeClient, opts)
}

func openClient(connectTimeout, socketTimeout time.Duration) clientcache.OpenFunc[*driver.Client] {
	return func(ctx context.Context, endpoints []string) (*driver.Client, error) {
		uri := "mongodb://" + strings.Join(endpoints, ",")

		clientOpts := options.Client().ApplyURI(uri)
		if connectTimeout > 0 {
			clientOpts.SetConnectTimeout(connectTimeout)
			clientOpts.SetServerSelectionTimeout(connectTimeout)
		}
		if socketTimeout > 0 {
			clientOpts.SetSocketTimeout(socketTimeout)
		}

		client, err := driver.Connect(ctx, clientOpts)
		if err != nil {
			return nil, err
		}

		pingCtx := ctx
		if connectTimeout > 0 {
			var cancel context.CancelFunc
			pingCtx, cancel = context.WithTimeout(ctx, connectTimeout)
			defer cancel()
		}
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, err
		}

		return client, nil
	}
}

func closeClient(ctx context.Context, client *driver.Client) error {
	return client.Disconnect(ctx)
}
