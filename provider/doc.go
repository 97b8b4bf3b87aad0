// Package provider maps a logical (provider kind, model id) selection to a
// concrete model client. The Resolver holds the environment-derived default
// ModelDescriptor; callers override kind and model id per resolution. Adding
// a backend means adding one Kind constant and one branch in Resolve; agent
// logic never touches vendor SDKs.
//
// Credential presence is validated when the Resolver is constructed so a
// missing key fails assembly before any model call is attempted.
package provider
