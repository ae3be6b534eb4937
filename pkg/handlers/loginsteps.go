package handlers

import (
	"context"
	"strings"
	"time"

	"gallerygrab/pkg/browser"
	errs "gallerygrab/pkg/errors"
	"gallerygrab/pkg/session"
)

// Login-step sequences are a small interpreted DSL: an ordered list of
// fill/click/press/wait steps read from the auth configuration file.

const defaultWaitTimeout = 10 * time.Second

// substitutePlaceholders replaces {username} and {password} in a step
// value with real credentials.
func substitutePlaceholders(value string, creds *session.Credentials) string {
	if creds == nil {
		return value
	}
	value = strings.ReplaceAll(value, "{username}", creds.Username)
	value = strings.ReplaceAll(value, "{password}", creds.Password)
	return value
}

// RunLoginSteps executes a login sequence against the current page. The
// caller is expected to have navigated to the login URL already.
func RunLoginSteps(ctx context.Context, page browser.Page, steps []session.LoginStep, creds *session.Credentials) error {
	for i, step := range steps {
		var err error

		switch strings.ToLower(step.Action) {
		case "fill":
			err = page.Fill(ctx, step.Selector, substitutePlaceholders(step.Value, creds))
		case "click":
			err = page.Click(ctx, step.Selector)
		case "press":
			err = page.Press(ctx, step.Value)
		case "wait":
			if step.Selector != "" {
				err = page.WaitFor(ctx, step.Selector, defaultWaitTimeout)
			} else if d, parseErr := time.ParseDuration(step.Value); parseErr == nil {
				select {
				case <-time.After(d):
				case <-ctx.Done():
					err = ctx.Err()
				}
			} else {
				err = errs.New(errs.ErrorTypeAuth, "wait step %d has neither selector nor duration", i)
			}
		default:
			err = errs.New(errs.ErrorTypeAuth, "unknown login step action %q", step.Action)
		}

		if err != nil {
			return errs.New(errs.ErrorTypeAuth, "login step %d (%s) failed: %v", i, step.Action, err)
		}
	}
	return nil
}

// VerifyLogin checks whether the current page looks logged in. Success
// selectors are consulted first; if none match, a visible login form
// means the login failed. With no evidence either way the login is
// presumed successful.
func VerifyLogin(ctx context.Context, page browser.Page, auth session.DomainAuth) bool {
	for _, sel := range auth.SuccessSelectors {
		if els, err := page.Query(ctx, sel); err == nil && len(els) > 0 {
			return true
		}
	}

	for _, sel := range auth.LoginFormSelectors {
		if els, err := page.Query(ctx, sel); err == nil && len(els) > 0 {
			return false
		}
	}

	return true
}
