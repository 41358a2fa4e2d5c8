package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// Login drives the installed-app OAuth2 flow (SPEC_FULL.md §4.Q): it
// opens a loopback listener on an ephemeral port, prints the
// authorization URL for the operator to open in a browser, waits for
// the redirect carrying the authorization code, exchanges it for
// tokens via golang.org/x/oauth2, and writes the resulting credentials
// file at credentialsPath with 0600 mode. printURL receives the URL to
// display (os.Stdout in the CLI entry point, a buffer in tests).
func Login(ctx context.Context, credentialsPath string, printURL func(string)) error {
	listener, err := newLoopbackListener()
	if err != nil {
		return fmt.Errorf("opening loopback listener: %w", err)
	}
	defer listener.Close()

	redirectURI := fmt.Sprintf("http://localhost:%d", listener.port)
	cfg := &oauth2.Config{
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		Endpoint:     endpoint(),
		RedirectURL:  redirectURI,
		Scopes:       []string{Scope},
	}

	authURL := cfg.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	printURL(authURL)

	code, err := listener.awaitCode(ctx)
	if err != nil {
		return fmt.Errorf("waiting for oauth redirect: %w", err)
	}

	creds, err := exchangeCode(ctx, cfg, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing credentials: %w", err)
	}
	if err := os.WriteFile(credentialsPath, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// buildAuthURL is a thin wrapper kept for tests that only need to
// inspect the authorization URL shape without a full oauth2.Config.
func buildAuthURL(redirectURI string) string {
	cfg := &oauth2.Config{
		ClientID: ClientID,
		Endpoint: endpoint(),
		Scopes:   []string{Scope},
	}
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func exchangeCode(ctx context.Context, cfg *oauth2.Config, code string) (Credentials, error) {
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return Credentials{}, fmt.Errorf("token exchange failed: %w", err)
	}
	if token.RefreshToken == "" {
		return Credentials{}, fmt.Errorf("token exchange response missing refresh_token (retry with a fresh consent screen)")
	}

	idToken, _ := token.Extra("id_token").(string)
	scope, _ := token.Extra("scope").(string)
	if scope == "" {
		scope = Scope
	}

	return Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    "Bearer",
		ExpiryDate:   token.Expiry.UnixMilli(),
		Scope:        scope,
		IDToken:      idToken,
	}, nil
}
