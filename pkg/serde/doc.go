// Package serde converts entity graphs to and from JSON.
//
// The conversion is driven entirely by runtime metadata (pkg/metadata): the
// meta-class of an entity decides which attributes exist, in which order they
// are written, and how each value is encoded. Identity, cyclic references and
// partial load state survive the round trip.
//
// # Wire Format
//
// A non-embeddable entity is written as:
//
//	{
//	  "_entityName": "Order",            // meta-class name
//	  "_instanceName": "SO-1 (PAID)",    // only with SerializeInstanceName
//	  "id": "123e4567-...",              // scalar, or an object for composite keys
//	  "__securityToken": "dG9rZW4=",     // only when security tokens are enabled
//	  "total": "9.99",
//	  "status": "PAID",
//	  "customer": { "_entityName": "Customer", "id": 7, ... }
//	}
//
// Embeddable entities are written as their attributes only. Collections are
// JSON arrays.
//
// # What Gets Written
//
// An attribute is written when it is not the primary key, the active fetch
// plan (if any) includes it, and either it is transient (unless read-only and
// DoNotSerializeRONonPersistentProperties is set) or the [entity.Oracle]
// reports it loaded. A loaded nil is always written as null; an unloaded
// attribute never appears.
//
// # Repeated Entities
//
// By default only real cycles are cut: an entity that appears again among its
// own ancestors is written as its header. Siblings may repeat an entity in
// full. With [CompactRepeatedEntities] every entity is written in full once
// per call and every later occurrence is reduced to its header.
//
// When reading, every (identity, meta-class) pair resolves to a single
// instance per call, and the members of later occurrences are merged into it.
//
// # Concurrency
//
// A [Serde] is immutable after [New]. Each call allocates its own reference
// tracker, so independent calls may run concurrently.
//
// # Usage
//
//	reg, _ := metadata.LoadSchemaFile("schema.toml")
//	s := serde.New(serde.Config{Provider: reg})
//
//	data, err := s.EntityToJSON(order, nil, serde.PrettyPrint)
//	e, err := s.EntityFromJSON(data, nil)
package serde
