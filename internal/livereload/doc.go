// Package livereload serves the development tree over HTTP and pushes reload
// signals to connected browsers over socket.io.
//
// HTML pages get a small client script injected before </body>. The script
// connects to the socket.io endpoint and, on a "reload" event, refreshes
// stylesheets in place when only CSS changed and reloads the page otherwise.
package livereload
