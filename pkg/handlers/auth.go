package handlers

import (
	"context"
	"time"

	"gallerygrab/pkg/browser"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/models"
	"gallerygrab/pkg/session"
)

// profileMaxAge is how long a saved profile is trusted before its
// cookies are re-verified against the live page.
const profileMaxAge = 24 * time.Hour

// authenticatePage is the shared authentication flow all handlers use:
// reuse a cached profile's cookies when present, otherwise replay the
// configured login-step sequence and persist the resulting cookies.
// Failure is reported as an outcome, not a fatal error.
func authenticatePage(ctx context.Context, page browser.Page, env *AuthEnv) (AuthOutcome, error) {
	if env == nil || env.Config == nil {
		return AuthSkipped, nil
	}

	pageURL := page.URL()
	domain := hostOf(pageURL)
	if domain == "" {
		return AuthSkipped, nil
	}

	auth, ok := env.Config.ForDomain(domain)
	if !ok {
		return AuthSkipped, nil
	}

	// Try the cached profile first.
	if env.Store != nil {
		if profile, ok := env.Store.Profile(domain); ok && len(profile.Cookies) > 0 {
			if outcome, err := reuseProfile(ctx, page, env, auth, profile, pageURL); outcome != AuthFailed {
				return outcome, err
			}
			// Stale cookies: fall through to a fresh login.
		}
	}

	return freshLogin(ctx, page, env, auth, domain, pageURL)
}

// reuseProfile installs cached cookies and verifies they still grant a
// logged-in view of the page.
func reuseProfile(ctx context.Context, page browser.Page, env *AuthEnv, auth session.DomainAuth, profile *session.AuthProfile, pageURL string) (AuthOutcome, error) {
	if err := page.SetCookies(ctx, profile.Cookies); err != nil {
		return AuthFailed, nil
	}
	if err := page.Navigate(ctx, pageURL, defaultWaitTimeout); err != nil {
		return AuthFailed, nil
	}

	if time.Since(profile.LastValidatedAt) < profileMaxAge {
		return AuthReused, nil
	}
	if VerifyLogin(ctx, page, auth) {
		return AuthReused, nil
	}
	return AuthFailed, nil
}

// freshLogin replays the configured login-step sequence.
func freshLogin(ctx context.Context, page browser.Page, env *AuthEnv, auth session.DomainAuth, domain, pageURL string) (AuthOutcome, error) {
	if env.Credentials == nil || auth.LoginURL == "" || len(auth.Steps) == 0 {
		return AuthSkipped, nil
	}

	creds, err := env.Credentials.Retrieve(domain)
	if err != nil || creds == nil {
		return AuthSkipped, nil
	}

	if env.Logger != nil {
		env.Logger.DebugWithFields("attempting login", map[string]interface{}{
			"domain":   domain,
			"username": creds.Username,
		})
	}

	if err := page.Navigate(ctx, auth.LoginURL, defaultWaitTimeout); err != nil {
		return AuthFailed, errs.New(errs.ErrorTypeAuth, "login page unreachable: %v", err)
	}
	if err := RunLoginSteps(ctx, page, auth.Steps, creds); err != nil {
		return AuthFailed, err
	}
	if !VerifyLogin(ctx, page, auth) {
		return AuthFailed, errs.New(errs.ErrorTypeAuth, "login form still present after login sequence")
	}

	// Persist cookies so the next run reuses the session.
	if env.Store != nil && env.SaveCookies {
		cookies, err := page.Cookies(ctx)
		if err == nil {
			profile := &session.AuthProfile{
				Domain:          domain,
				Cookies:         cookies,
				Username:        creds.Username,
				LastValidatedAt: time.Now(),
			}
			if err := env.Store.Put(profile); err != nil && env.Logger != nil {
				env.Logger.WithError(err).Warn("failed to persist auth profile")
			}
		}
	}

	// Return to the page we were asked to extract.
	if err := page.Navigate(ctx, pageURL, defaultWaitTimeout); err != nil {
		return AuthLoggedIn, errs.New(errs.ErrorTypeNavigation, "return to target failed: %v", err)
	}

	return AuthLoggedIn, nil
}

// candidateFromURL builds an image/video candidate after the
// construction-time thumbnail checkpoint. Thumbnail URLs that cannot be
// upgraded are dropped (empty SourceURL).
func candidateFromURL(rawURL, originPage string, via models.StrategyID) models.MediaCandidate {
	if IsThumbnailURL(rawURL) {
		upgraded, ok := UpgradeThumbnailURL(rawURL)
		if !ok || IsThumbnailURL(upgraded) {
			return models.MediaCandidate{}
		}
		rawURL = upgraded
	}

	kind, ok := kindForURL(rawURL)
	if !ok {
		kind = models.KindImage
	}

	return models.MediaCandidate{
		SourceURL:     rawURL,
		Kind:          kind,
		OriginPage:    originPage,
		DiscoveredVia: via,
	}
}
