// Package respserver serves the respkv key-value store over TCP using a
// RESP2 subset.
//
// A request is an array of bulk strings:
//
//	*<count>\r\n$<len>\r\n<payload>\r\n ...
//
// Replies are simple strings (+OK), bulk strings ($3\r\nfoo\r\n), the null
// bulk string ($-1), integers (:1) and errors (-ERR ...).
//
// Supported commands:
//   - PING [message], ECHO message, QUIT
//   - GET key, SET key value [PX milliseconds]
//   - CLIENT INFO | ID | LIST | SETINFO attr value [attr value ...]
//
// Each accepted connection is served by its own goroutine with its own
// Session. Malformed frames and command names that are not valid UTF-8
// close the offending connection; command-level mistakes (unknown verbs,
// wrong arity, bad options) get an error reply and the connection stays
// open.
package respserver
