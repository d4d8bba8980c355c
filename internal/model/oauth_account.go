package model

// OAuthAccount links one external identity to exactly one local user.
// (ProviderID, ProviderUserID) is the composite primary key.
type OAuthAccount struct {
	ProviderID     string `db:"provider_id"`
	ProviderUserID string `db:"provider_user_id"`
	UserID         int64  `db:"user_id"`
}
