// Package services implements the remote side of the UDJ sync protocol.
//
// # Remote Client
//
// [UDJService] implements [RemoteClient] against a UDJ server. Every call is a single form-encoded POST:
//   - /auth: username and password, answered with a status code only
//   - /playlist: username, token, optional timestamp and the JSON update array
//   - /library: username, token and optional timestamp
//
// The HTTP client is owned by the service and built by [NewHTTPClient] with bounded dial, handshake, header and total
// timeouts. A nil client passed to [NewUDJService] gets one with [DefaultTimeout].
//
// # Status Mapping
//
//   - 200: body decoded as a JSON array
//   - 401: [shared.ErrAuthFailed]
//   - anything else, transport errors and timeouts: [shared.ErrTransport]
//   - malformed JSON or entries without an id: [shared.ErrParse]
//
// # Wire Format
//
// Timestamps use [shared.ServerTimestampFormat] in UTC. See [EncodeUpdateArray], [DecodePlaylistEntries] and
// [DecodeLibraryEntries] for the entry shape.
package services
