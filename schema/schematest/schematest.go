// Package schematest provides a .proto fixture exercising every field shape
// supported by generation, for use in tests.
package schematest

import (
	"context"

	"go.gazette.dev/protofake/schema"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FileName is the path of the Source fixture.
const FileName = "acme/orders.proto"

// Source of the fixture.
const Source = `syntax = "proto3";

package acme.orders;

import "google/protobuf/timestamp.proto";

// An order placed by a customer.
message Order {
  // Unique order identifier. string=uuid
  string id = 1;
  // The ordering user. pool=user_ids
  string user_id = 2;
  // Customer display name. words=2..3
  string customer = 3;
  // count=1..4
  repeated LineItem items = 4;
  // distribution=lognormal(3, 0.5)
  double total = 5;
  Status status = 6;
  google.protobuf.Timestamp placed_at = 7;
  map<string, int32> attributes = 8; // count=0..2
  oneof payment {
    Card card = 9;
    string voucher = 10; // words=1
    bool on_account = 11;
  }
  // Always empty. count=0..0
  repeated string notes = 12;
  bytes signature = 13; // count=8
  // string=email
  string contact = 14;
  Address shipping = 15;
  optional int32 priority = 16; // distribution=uniform(1,3)

  message Address {
    string street = 1; // words=2..4
    string city = 2;
  }

  enum Status {
    STATUS_UNSPECIFIED = 0;
    PENDING = 1;
    SHIPPED = 2;
    DELIVERED = 3;
  }
}

message LineItem {
  string sku = 1; // string=hex
  // distribution=uniform(1,10)
  uint32 quantity = 2;
  // distribution=normal(25,5)
  float unit_price = 3;
  sint64 discount = 4;
  fixed64 warehouse = 5;
  repeated bytes tags = 6; // words=2..2 count=3
}

message Card {
  string holder = 1; // string=name
  int32 expiry_month = 2; // distribution=uniform(1,12)
  string phone = 3; // string=phone
}

// A self-referential tree node.
message Node {
  string label = 1; // words=1
  repeated Node children = 2; // count=0..2
}
`

// Load compiles Source into an Index, and panics on error.
func Load() *schema.Index {
	var x, err = schema.LoadSource(context.Background(), FileName, Source, nil)
	if err != nil {
		panic(err)
	}
	return x
}

// Message loads the Source fixture and returns the message |name|
// (eg "acme.orders.Order"), and panics on error.
func Message(name string) protoreflect.MessageDescriptor {
	var md, err = Load().Message(name)
	if err != nil {
		panic(err)
	}
	return md
}
