// Package http implements the read-only query API of the pricecalc server.
// Handlers only parse requests, call the query service and render the
// response; all calculation happens in the services layer.
//
// # Routes
//
//	GET  /healthz
//	GET  /api/v1/stdev/{securityID}/{priceType}?snap_time=2021-11-22T05:00:00Z
//	GET  /api/v1/stdev?start=...&end=...&security_id=S1,S2
//	POST /api/v1/rates/convert
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by internal/errors:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "invalid parameter snap_time",
//	    "instance": "/api/v1/stdev/S1/mid"
//	}
//
// Data quality faults in a request body are answered with 422 and the
// list of faults. Missing data is never an error; it is reported in the
// status field of each result row.
package http
