// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package postgres

const (
	// SQL table names:
	profileTable = "profile"

	// SQL column names:
	profileAddress     = profileTable + ".address"
	profileUsername    = profileTable + ".username"
	profileDisplayName = profileTable + ".display_name"
	profileBio         = profileTable + ".bio"
	profileAvatarURL   = profileTable + ".avatar_url"
	profileLinks       = profileTable + ".links"
	profileCreatedAt   = profileTable + ".created_at"

	// Constraint names, as reported in unique violations:
	profilePrimaryKey  = "profile_pkey"
	profileUsernameKey = "profile_username_key"

	// WHERE clause fragments:
	isAddress  = profileAddress + "=$1"
	isUsername = profileUsername + "=$1"

	// SQLSTATE codes:
	uniqueViolation      = "23505"
	serializationFailure = "40001"
)

// profileColumns are the columns scanned by scanProfile, in order.
var profileColumns = []string{
	profileAddress,
	profileUsername,
	profileDisplayName,
	profileBio,
	profileAvatarURL,
	profileLinks,
	profileCreatedAt,
}
