// Package driving defines the inbound ports of the Seedsync core:
// the interfaces its collaborators (CLI, renderer, UI shells) call.
package driving
