// Package wowsql is the Go client SDK for the WowSQL hosted database and
// storage platform. Every operation is a single authenticated HTTP call:
// database queries are accumulated in a QueryBuilder and rendered into one
// request on a terminal call, storage operations are direct methods on
// StorageClient.
//
// Read queries encode their state as URL parameters with an operator-suffix
// grammar that is part of the platform's compatibility surface:
//
//	status__eq=active&age__gt=18&limit=10&order_by=name&order=desc
//
// Filters conjoin (AND). OR-combination, filter grouping and multi-column
// ordering are not supported.
//
// All failures are *Error values tagged with a Kind; match them with
// errors.As or the IsKind helper:
//
//	rows, err := client.Table("users").Eq("status", "active").Get(ctx)
//	if wowsql.IsKind(err, wowsql.KindRateLimit) {
//		// back off
//	}
//
// The SDK never retries and never reads the environment; base URL, API key
// and timeout are constructor arguments.
package wowsql
