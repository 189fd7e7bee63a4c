// Package policy evaluates the session safety policy with OPA.
package policy
