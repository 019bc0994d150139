// Package accounts is the local credential store used by sync cycles.
//
// A [Manager] keeps one row per UDJ login. The password is verified against the server when the account is added and
// whenever a token has to be acquired. The cached token is opaque to the client: the server accepts it in place of the
// password until [Manager.InvalidateAuthToken] drops it after a 401. Sync cycles read tokens through
// [Manager.TokenSource].
package accounts
