// Package signing attaches and verifies signatures over OCPP payloads.
//
// A payload is signed over its canonical form: the JSON object without its
// top-level "signatures" field, re-encoded with sorted keys, numbers kept
// verbatim and no HTML escaping. The verifier recomputes the same bytes from
// the received payload, so any change to a signed field invalidates every
// signature.
//
// Multiple co-signatures are supported. Which of them must validate is a
// Policy of the Verifier:
//
//	v := signing.NewVerifier(keys, signing.PolicyAllDeclared, true)
//	if err := v.Verify(payload, sigs); err != nil {
//	    // reply with a SignatureError result
//	}
package signing
