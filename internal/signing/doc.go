// Package signing provides the cryptographic primitives behind the audit
// log: RSA-PSS signatures over canonical record payloads and AES-256-GCM
// envelope encryption for payloads at rest. Keys are supplied by
// configuration; nothing here generates long-lived key material at runtime.
package signing
