package gcs

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// oauthHTTPClient wraps base so every request carries a fresh bearer token.
func oauthHTTPClient(ctx context.Context, base *http.Client, creds *google.Credentials) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = base.Timeout
	return client
}
