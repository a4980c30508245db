package ratelimit

import "time"

// The three gateway policies. Auth endpoints are the tightest since they are
// the credential-stuffing target; public reads are the loosest and skip
// callers already presenting credentials.

func AuthPolicy() Policy {
	return Policy{
		Scope:      "auth",
		Limit:      10,
		Window:     15 * time.Minute,
		RetryAfter: "15 minutes",
	}
}

func APIPolicy() Policy {
	return Policy{
		Scope:      "api",
		Limit:      100,
		Window:     15 * time.Minute,
		RetryAfter: "15 minutes",
	}
}

func PublicReadPolicy() Policy {
	return Policy{
		Scope:          "public",
		Limit:          200,
		Window:         15 * time.Minute,
		RetryAfter:     "15 minutes",
		SkipAuthorized: true,
	}
}
