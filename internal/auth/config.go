// Package auth issues and verifies session tokens and hashes passwords.
package auth

import "time"

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "jwtRefreshToken"

// Config carries everything the token and cookie layer needs.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	BcryptCost    int
	// SecureCookies marks the refresh cookie Secure and SameSite=Strict.
	SecureCookies bool
	Now           func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CookieSameSite returns the SameSite mode for the refresh cookie.
func (c Config) CookieSameSite() string {
	if c.SecureCookies {
		return "Strict"
	}
	return "Lax"
}
