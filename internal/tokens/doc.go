// Package tokens acquires the access credentials that authenticate the
// MQTT session.
//
// The Manager performs an OAuth2 client-credentials exchange (form-encoded
// POST) against a configured token endpoint and caches the resulting
// credential until shortly before expiry. The connection session consults
// the manager before establishing or re-establishing the transport
// connection; the embedder can force a refresh at any time without tearing
// down an open session.
//
// # Usage
//
//	manager := tokens.NewManager(cfg.MQTT.Auth)
//	cred, err := manager.Token(ctx) // cached or freshly acquired
//	if err != nil {
//	    // errors.Is(err, tokens.ErrUnauthorized) => bad credentials
//	}
package tokens
