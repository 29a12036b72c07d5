// Package webui serves the admin login page as an embedded asset.
//
// The page asks for the PIN shown on the device display, posts it to
// /api/auth and keeps the returned session token in sessionStorage. A
// quick-access URL of the form http://host/?pin=123456 submits the PIN
// straight away, which is what the QR code on the display encodes.
//
// The Handler function serves these assets with SPA fallback routing: if
// a requested file does not exist, index.html is served.
package webui
