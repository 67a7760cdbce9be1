// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth is the client side of the single external identity provider.

It turns an authorization code into a verified profile in two steps: the code is
exchanged for a provider access token, which is then used to fetch the user's
profile. Both calls share one deadline and are never retried, since codes are
single-use.

Architecture:

  - GoogleProvider: golang.org/x/oauth2 against Google's endpoints.
  - CodeGuard: Rejects a code that was already presented, before the provider sees it.
*/
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
)

// GoogleUserInfoURL is the v2 userinfo endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// maxProfileBytes caps the userinfo body read into memory.
const maxProfileBytes = 1 << 20

var (
	// ErrInvalidGrant is returned when the provider rejects the authorization code
	// or the profile it returns cannot identify an account.
	ErrInvalidGrant = apperr.New(http.StatusUnauthorized, "INVALID_GRANT", "Authorization code is invalid or expired")

	// ErrUpstreamUnavailable covers network failures, timeouts and 5xx answers.
	ErrUpstreamUnavailable = apperr.BadGateway("Identity provider is unavailable", nil)
)

// Profile is the identity vouched for by the provider.
type Profile struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
}

// GoogleConfig holds the client registration and transport bounds.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration

	// Endpoint and UserInfoURL default to Google's production endpoints.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// GoogleProvider exchanges Google authorization codes for profiles.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	timeout     time.Duration
	guard       CodeGuard
}

// NewGoogleProvider builds a provider. A nil guard accepts every code.
func NewGoogleProvider(cfg GoogleConfig, guard CodeGuard) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}

	if guard == nil {
		guard = NopCodeGuard{}
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		timeout:     cfg.Timeout,
		guard:       guard,
	}
}

/*
ExchangeCodeForProfile performs the code → token → profile exchange.

Parameters:
  - ctx: context.Context
  - code: string (authorization code from the redirect)

Returns:
  - *Profile: Email, display name and provider-scoped id
  - error: ErrInvalidGrant or ErrUpstreamUnavailable
*/
func (provider *GoogleProvider) ExchangeCodeForProfile(ctx context.Context, code string) (*Profile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidGrant
	}

	if err := provider.guard.Claim(ctx, code); err != nil {
		return nil, err
	}

	if provider.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, provider.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, provider.httpClient)

	token, err := provider.config.Exchange(ctx, code)
	if err != nil {
		classified := classifyExchangeError(err)
		ctxutil.GetLogger(ctx).WarnContext(ctx, "oauth_code_exchange_failed",
			slog.String("code", apperr.As(classified).Code),
			slog.String("error", err.Error()),
		)
		return nil, classified
	}

	profile, err := provider.fetchProfile(ctx, token)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "oauth_profile_fetch_failed", slog.Any("error", err))
		return nil, err
	}

	return profile, nil
}

// googleUserInfo is the subset of the v2 userinfo document Quill reads.
type googleUserInfo struct {
	ID    string `json:"id"`
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (provider *GoogleProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.userInfoURL, nil)
	if err != nil {
		return nil, ErrUpstreamUnavailable.WithCause(err)
	}

	// The oauth2 client attaches "Authorization: Bearer <token>".
	response, err := provider.config.Client(ctx, token).Do(request)
	if err != nil {
		return nil, ErrUpstreamUnavailable.WithCause(err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidGrant.WithCause(fmt.Errorf("oauth: userinfo status %d", response.StatusCode))
	case response.StatusCode != http.StatusOK:
		return nil, ErrUpstreamUnavailable.WithCause(fmt.Errorf("oauth: userinfo status %d", response.StatusCode))
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(response.Body, maxProfileBytes)).Decode(&info); err != nil {
		return nil, ErrUpstreamUnavailable.WithCause(fmt.Errorf("oauth: decode userinfo: %w", err))
	}

	externalID := info.ID
	if externalID == "" {
		externalID = info.Sub
	}

	if strings.TrimSpace(info.Email) == "" || externalID == "" {
		return nil, ErrInvalidGrant.WithCause(errors.New("oauth: profile lacks email or subject"))
	}

	return &Profile{
		Provider:   constants.OAuthProviderGoogle,
		ExternalID: externalID,
		Email:      info.Email,
		Name:       info.Name,
	}, nil
}

// classifyExchangeError maps a token-endpoint failure onto the provider error taxonomy.
func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return ErrInvalidGrant.WithCause(err)
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusBadRequest {
			return ErrInvalidGrant.WithCause(err)
		}
	}
	return ErrUpstreamUnavailable.WithCause(err)
}
