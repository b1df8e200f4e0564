// Package ddbclient provides the conveniences the raw DynamoDB API lacks:
// splitting oversized batch reads and writes into service-legal requests,
// dispatching them with a bounded number of in-flight calls, streaming
// paginated Query/Scan results item by item, and creating or deleting
// tables synchronously by polling until the store settles.
//
// Reads and writes are capability-split: a [ReadClient] can only read and a
// [WriteClient] can only write, so handing a component the wrong kind of
// access does not compile. Both variants carry the table lifecycle methods.
// [SplitClient] pairs one of each against two separate stores.
//
// # Usage
//
// Load a config, connect, and move some data:
//
//	cfg, err := ddbclient.LoadConfig("store.yaml")
//	if err != nil {
//	    return err
//	}
//	client, err := ddbclient.NewWriteClient(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	set, err := client.BatchWriteRequests(ops) // any number of ops
//	if err != nil {
//	    return err
//	}
//	res, err := set.SendAll(ctx, ddbclient.WithConcurrency(4))
//
// Unprocessed keys and writes on the result are data, not errors: re-split
// them into a fresh set and send again when the store was throttling.
package ddbclient
