package signer

// Labeler lets a capability announce its own fingerprint label. Capabilities
// that do not implement it fall through the probe table below.
type Labeler interface {
	Label() string
}

// fingerprint is one (probe, label) pair. Probes run in order; the first
// match wins.
type fingerprint struct {
	label string
	probe func(Capability) bool
}

// fingerprints is the ordered detection table. Keeping this data-driven
// (rather than branching logic) makes new integrations a one-line addition.
var fingerprints = []fingerprint{
	{"self-labeled", func(c Capability) bool { _, ok := c.(Labeler); return ok }},
	{"nip07-full", func(c Capability) bool { _, ok := c.(Encryptor); return ok }},
	{"sign-only", func(c Capability) bool { return true }},
}

// fingerprintLabel resolves the best-effort label for a present capability.
// Unmatched capabilities get the generic trailing entry rather than an error.
func fingerprintLabel(cap Capability) string {
	for _, f := range fingerprints {
		if f.probe(cap) {
			if f.label == "self-labeled" {
				return cap.(Labeler).Label()
			}
			return f.label
		}
	}
	return "unknown"
}
