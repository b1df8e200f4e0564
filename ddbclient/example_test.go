package ddbclient_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/acksell/dynokit/ddbclient"
	"github.com/acksell/dynokit/ddbmock"
	"github.com/acksell/dynokit/ddbwire"
	"github.com/acksell/dynokit/table"
)

// Example writes a batch of purchases and streams one customer's rows back
// in sort-key order. The in-memory store stands in for the service; against
// a real endpoint, dial with NewReadClient/NewWriteClient and a Config
// instead.
func Example() {
	ctx := context.Background()

	purchases := table.TableDefinition{
		Name: "purchases",
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: table.KeyDef{Name: "customer", Kind: table.KeyKindS},
			SortKey:      table.KeyDef{Name: "seq", Kind: table.KeyKindN},
		},
	}
	store, err := ddbmock.NewStore(ddbmock.StoreOptions{}, purchases)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	cfg := ddbclient.Config{TableName: "purchases"}
	writer, err := ddbclient.NewWriteClientFromAPI(store, cfg)
	if err != nil {
		log.Fatal(err)
	}
	reader, err := ddbclient.NewReadClientFromAPI(store, cfg)
	if err != nil {
		log.Fatal(err)
	}

	type purchase struct {
		Customer string  `dynamodbav:"customer"`
		Seq      int     `dynamodbav:"seq"`
		Total    float64 `dynamodbav:"total"`
	}

	var ops []ddbclient.WriteOp
	for _, p := range []purchase{
		{Customer: "ada", Seq: 1, Total: 9.5},
		{Customer: "ada", Seq: 2, Total: 3.25},
		{Customer: "grace", Seq: 1, Total: 12},
	} {
		item, err := ddbwire.MarshalItem(p)
		if err != nil {
			log.Fatal(err)
		}
		ops = append(ops, ddbclient.PutOp(item))
	}

	set, err := writer.BatchWriteRequests(ops)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := set.SendAll(ctx); err != nil {
		log.Fatal(err)
	}

	stream, err := reader.QueryStream(expression.Key("customer").Equal(expression.Value("ada")))
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	for stream.Next(ctx) {
		var p purchase
		if err := ddbwire.UnmarshalItem(stream.Item(), &p); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("purchase %d: %.2f\n", p.Seq, p.Total)
	}
	if err := stream.Err(); err != nil {
		log.Fatal(err)
	}

	// Output:
	// purchase 1: 9.50
	// purchase 2: 3.25
}
