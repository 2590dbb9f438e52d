package google

// DefaultDiscoveryURL is Google's OpenID Connect discovery document.
const DefaultDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// DefaultOAuthScopes are the scopes requested at sign-in. They are enough to
// read the user's id, name, email (with its verification flag) and picture.
var DefaultOAuthScopes = []string{
	"openid",
	"email",
	"profile",
}
