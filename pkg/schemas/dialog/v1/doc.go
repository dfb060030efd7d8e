// Package dialog defines the wire contracts of the dialog protocol:
// typed multi-modal prompts, conversational messages with billing and
// routing metadata, and the Dialog aggregate with its JSON/zlib wire form.
package dialog
