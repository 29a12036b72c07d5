// Package api provides the HTTP surface of the admin interface: PIN login,
// session checks, secret management, OTP setup, status, and the audit
// trail.
//
// Routes under /api are grouped by whether they sit behind the access
// gate. The login page itself is served from the root by the webui
// handler passed in Deps.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
