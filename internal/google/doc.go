// Package google signs users in with Google's OpenID Connect provider using
// the OAuth2 Authorization Code flow.
//
// The provider's endpoints are read from its discovery document on every
// call, so nothing about the provider is cached between requests. Tokens
// are used once to fetch the user's profile and then dropped.
package google
