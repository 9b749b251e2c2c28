// Package identity resolves the authenticated caller of an HTTP request.
//
// A Resolver turns a request into an Identity. JWT verifies HS256 tokens
// with golang-jwt; Header and Query trust a plain user id and exist for local
// development. FirstOf chains them:
//
//	resolve := identity.FirstOf(
//		identity.JWT(secret, identity.BearerToken, identity.QueryToken("token")),
//	)
//	r.Use(identity.Middleware(resolve, nil))
//
// Handlers read the caller with FromContext.
package identity
