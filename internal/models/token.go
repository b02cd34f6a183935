package models

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenBundle is the persisted credential needed to call the calendar service.
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Valid reports whether the access token is present and unexpired at now.
func (b *TokenBundle) Valid(now time.Time) bool {
	return b != nil && b.AccessToken != "" && b.Expiry.After(now)
}

// Refreshable reports whether a refresh token is available.
func (b *TokenBundle) Refreshable() bool {
	return b != nil && b.RefreshToken != ""
}

// OAuth2Token converts the bundle for use with golang.org/x/oauth2.
func (b *TokenBundle) OAuth2Token() *oauth2.Token {
	tokenType := b.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    tokenType,
		Expiry:       b.Expiry,
	}
}

// BundleFromOAuth2 converts an oauth2 token into a bundle. Granted scopes are taken
// from the token response when the provider reports them, otherwise fallback is used.
func BundleFromOAuth2(tok *oauth2.Token, fallback []string) *TokenBundle {
	scopes := fallback
	if raw, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
		scopes = strings.Fields(raw)
	}
	return &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       append([]string(nil), scopes...),
	}
}
